package ids

import "testing"

func TestDRStackMultiplier(t *testing.T) {
	cases := []struct {
		stack int
		want  float64
	}{
		{0, 1.0},
		{1, 0.5},
		{2, 0.25},
		{3, 0.0},
		{4, 0.0},
	}
	for _, c := range cases {
		if got := DRStackMultiplier(c.stack); got != c.want {
			t.Errorf("DRStackMultiplier(%d) = %v, want %v", c.stack, got, c.want)
		}
	}
}

func TestEntityIdEmpty(t *testing.T) {
	if !Empty.IsEmpty() {
		t.Fatal("Empty.IsEmpty() = false, want true")
	}
	if EntityId(7).IsEmpty() {
		t.Fatal("non-zero EntityId reported empty")
	}
}

func TestPositionDistance(t *testing.T) {
	a := Position{X: 0, Y: 0, Z: 0}
	b := Position{X: 3, Y: 4, Z: 0}
	if d := a.Distance(b); d < 4.999 || d > 5.001 {
		t.Fatalf("Distance = %v, want ~5", d)
	}
}
