package export

import "testing"

func TestPackedToColorUnpacksChannels(t *testing.T) {
	c := packedToColor(0x112233)
	if c.R != 0x11 || c.G != 0x22 || c.B != 0x33 || c.A != 0xFF {
		t.Errorf("packedToColor(0x112233) = %+v, want {0x11,0x22,0x33,0xFF}", c)
	}
}

func TestDefaultOptionsFillsEveryField(t *testing.T) {
	o := DefaultOptions("out.mp4")
	if o.OutputPath != "out.mp4" || o.FPS == 0 || o.CellWidth == 0 || o.CellHeight == 0 || o.CRF == 0 {
		t.Errorf("DefaultOptions() left a zero field: %+v", o)
	}
}
