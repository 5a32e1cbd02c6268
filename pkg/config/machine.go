package config

// Machine holds the geometric constants used to synthesize stitch geometry.
// Lengths are in needle-pitch units; depths are positions along z, with the
// front bed at positive z.
type Machine struct {
	// [geometry]
	BoxWidth  float64 // width of one stitch cell
	BoxHeight float64 // height of one stitch cell
	BoxDepth  float64 // depth of the zig-zag across the bed plane
	Epsilon   float64 // vertical nudge used to separate stacked yarn

	// [depth]
	FrontBed     float64
	BackBed      float64
	FrontSliders float64
	BackSliders  float64
	Carriers     float64 // depth of carrier plane 0

	// [machine]
	Stitch       int // initial stitch setting
	MaxVersion   int // newest knitout version accepted without a warning
	NeighborScan int // needles scanned each way for a neighbor height; 0 = unlimited
}

// DefaultMachine returns the built-in geometry.
func DefaultMachine() *Machine {
	return &Machine{
		BoxWidth:     1,
		BoxHeight:    1,
		BoxDepth:     0.1,
		Epsilon:      0.1,
		FrontBed:     1,
		BackBed:      -1,
		FrontSliders: 0.5,
		BackSliders:  -0.5,
		Carriers:     0.5,
		Stitch:       5,
		MaxVersion:   2,
	}
}

// BoxSpacing is the gap between adjacent stitch cells and the vertical
// distance between stacked loops.
func (m *Machine) BoxSpacing() float64 { return m.BoxHeight / 2 }

// Padding is the horizontal inset of the loop face within its cell.
func (m *Machine) Padding() float64 { return m.BoxWidth / 10 }

// CarrierSpacing is the depth distance between adjacent carrier planes.
func (m *Machine) CarrierSpacing() float64 { return (m.FrontSliders - m.Carriers) / 16 }

// LoadMachine reads a machine file. An empty path yields DefaultMachine.
func LoadMachine(path string) (*Machine, error) {
	if path == "" {
		return DefaultMachine(), nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return MachineFromConfig(cfg)
}

// MachineFromConfig overlays the options present in cfg on DefaultMachine.
// Unknown sections or options are an error.
func MachineFromConfig(cfg *Config) (*Machine, error) {
	m := DefaultMachine()

	for _, f := range []struct {
		section string
		option  string
		dst     *float64
		rules   []Rule
	}{
		{"geometry", "box_width", &m.BoxWidth, []Rule{Above(0)}},
		{"geometry", "box_height", &m.BoxHeight, []Rule{Above(0)}},
		{"geometry", "box_depth", &m.BoxDepth, []Rule{AtLeast(0)}},
		{"geometry", "epsilon", &m.Epsilon, []Rule{Above(0)}},
		{"depth", "front_bed", &m.FrontBed, nil},
		{"depth", "back_bed", &m.BackBed, nil},
		{"depth", "front_sliders", &m.FrontSliders, nil},
		{"depth", "back_sliders", &m.BackSliders, nil},
		{"depth", "carriers", &m.Carriers, nil},
	} {
		v, err := cfg.Section(f.section).Float(f.option, *f.dst, f.rules...)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	mach := cfg.Section("machine")
	var err error
	if m.Stitch, err = mach.Int("stitch", m.Stitch); err != nil {
		return nil, err
	}
	if m.MaxVersion, err = mach.Int("max_version", m.MaxVersion, AtLeast(1)); err != nil {
		return nil, err
	}
	if m.NeighborScan, err = mach.Int("neighbor_scan", m.NeighborScan, AtLeast(0)); err != nil {
		return nil, err
	}

	if m.FrontBed <= m.BackBed {
		depth := cfg.Section("depth")
		return nil, &Error{
			File:    cfg.file,
			Line:    depth.Line("front_bed"),
			Section: "depth",
			Option:  "front_bed",
			Value:   fmtNum(m.FrontBed),
			Reason:  "must be in front of back_bed (" + fmtNum(m.BackBed) + ")",
		}
	}
	if err := cfg.CheckUnused(); err != nil {
		return nil, err
	}
	return m, nil
}
