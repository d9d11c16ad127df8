package grid

import "testing"

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{name: "valid", params: Params{Width: 3, Height: 2}},
		{name: "zero width", params: Params{Width: 0, Height: 2}, wantErr: true},
		{name: "negative height", params: Params{Width: 3, Height: -1}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.params.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("Validate() = nil, want error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("Validate() returned error: %v", err)
			}
		})
	}
}

func TestDerivedCounts(t *testing.T) {
	p := Params{Width: 1000, Height: 1000}
	if got := p.HorizontalCount(); got != 1001000 {
		t.Fatalf("HorizontalCount() = %d, want 1001000", got)
	}
	if got := p.VerticalCount(); got != 1001000 {
		t.Fatalf("VerticalCount() = %d, want 1001000", got)
	}
	if got := p.EdgeCount(); got != 2002000 {
		t.Fatalf("EdgeCount() = %d, want 2002000", got)
	}
	if got := p.BoxCount(); got != 1000000 {
		t.Fatalf("BoxCount() = %d, want 1000000", got)
	}
}

func TestEdgeCoordsRoundTrip(t *testing.T) {
	p := Params{Width: 4, Height: 3}
	for edgeID := 0; edgeID < p.EdgeCount(); edgeID++ {
		e := p.EdgeCoords(edgeID)
		if got := p.CoordsToEdge(e); got != edgeID {
			t.Fatalf("CoordsToEdge(EdgeCoords(%d)) = %d, want %d", edgeID, got, edgeID)
		}
	}
}

func TestAdjacentBoxesCount(t *testing.T) {
	p := Params{Width: 4, Height: 3}
	for edgeID := 0; edgeID < p.EdgeCount(); edgeID++ {
		boxes := p.AdjacentBoxes(edgeID)
		if len(boxes) < 1 || len(boxes) > 2 {
			t.Fatalf("AdjacentBoxes(%d) returned %d boxes, want 1 or 2", edgeID, len(boxes))
		}
		e := p.EdgeCoords(edgeID)
		interior := false
		if e.Horizontal {
			interior = e.Y > 0 && e.Y < p.Height
		} else {
			interior = e.X > 0 && e.X < p.Width
		}
		if interior && len(boxes) != 2 {
			t.Fatalf("interior edge %d borders %d boxes, want 2", edgeID, len(boxes))
		}
		if !interior && len(boxes) != 1 {
			t.Fatalf("boundary edge %d borders %d boxes, want 1", edgeID, len(boxes))
		}
		for _, box := range boxes {
			if box < 0 || box >= p.BoxCount() {
				t.Fatalf("AdjacentBoxes(%d) returned invalid box %d", edgeID, box)
			}
		}
	}
}

func TestBoxEdgesValid(t *testing.T) {
	p := Params{Width: 4, Height: 3}
	for boxID := 0; boxID < p.BoxCount(); boxID++ {
		edges := p.BoxEdges(boxID)
		for _, edgeID := range edges {
			if !p.ValidEdge(edgeID) {
				t.Fatalf("BoxEdges(%d) returned invalid edge %d", boxID, edgeID)
			}
			boxes := p.AdjacentBoxes(edgeID)
			found := false
			for _, box := range boxes {
				if box == boxID {
					found = true
				}
			}
			if !found {
				t.Fatalf("edge %d from BoxEdges(%d) does not border that box", edgeID, boxID)
			}
		}
	}
}

func TestBoxEdgesLargeGrid(t *testing.T) {
	p := Params{Width: 1000, Height: 1000}
	edges := p.BoxEdges(0)
	want := [4]int{0, 1000, 1001000, 1001001}
	if edges != want {
		t.Fatalf("BoxEdges(0) = %v, want %v", edges, want)
	}
}

func TestEdgeCoordsPanicsOutOfRange(t *testing.T) {
	p := Params{Width: 2, Height: 2}
	defer func() {
		if recover() == nil {
			t.Fatalf("EdgeCoords did not panic on out-of-range edge id")
		}
	}()
	p.EdgeCoords(p.EdgeCount())
}
