package domain

import "testing"

func TestPanels_Renumber(t *testing.T) {
	panels := Panels{
		{PanelNumber: 3, PanelText: "c"},
		{PanelNumber: 1, PanelText: "a"},
		{PanelNumber: 2, PanelText: "b"},
	}

	panels.Renumber()

	for i, p := range panels {
		if p.PanelNumber != i+1 {
			t.Errorf("パネル %d の番号が %d になっているのだ", i, p.PanelNumber)
		}
	}
	if err := panels.Validate(); err != nil {
		t.Errorf("再採番後の検証に失敗したのだ: %v", err)
	}
}

func TestPanels_Validate(t *testing.T) {
	t.Run("番号が重複していたらエラーになる", func(t *testing.T) {
		panels := Panels{{PanelNumber: 1}, {PanelNumber: 1}}
		if err := panels.Validate(); err == nil {
			t.Error("重複番号でエラーが返るべきなのだ")
		}
	})

	t.Run("空のスライスは常に正当", func(t *testing.T) {
		if err := (Panels{}).Validate(); err != nil {
			t.Errorf("空スライスでエラーは不要なのだ: %v", err)
		}
	})
}
