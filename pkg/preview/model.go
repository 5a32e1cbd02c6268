package preview

import (
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/interp"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/objout"
)

// Model is the JSON form of a synthesized model.
type Model struct {
	Source   string   `json:"source"`
	Version  int      `json:"version"`
	Rows     int      `json:"rows"`
	Loops    []Loop   `json:"loops"`
	Warnings []string `json:"warnings,omitempty"`
}

// Loop is one loop in output order.
type Loop struct {
	Row     int          `json:"row"`
	Needle  string       `json:"needle"`
	Carrier string       `json:"carrier"`
	Index   int          `json:"index"`
	Points  [][3]float64 `json:"points"`
}

// NewModel converts an interpreter result.
func NewModel(source string, res *interp.Result) *Model {
	rows := res.Rows()
	m := &Model{
		Source:  source,
		Version: res.Version,
		Rows:    len(rows),
		Loops:   []Loop{},
	}
	objout.Walk(rows, func(ref objout.LoopRef) bool {
		l := Loop{
			Row:     ref.Row,
			Needle:  ref.Needle.String(),
			Carrier: ref.Carrier,
			Index:   ref.Index,
			Points:  make([][3]float64, 0, len(ref.Points)),
		}
		for _, p := range ref.Points {
			l.Points = append(l.Points, [3]float64{p.X, p.Y, p.Z})
		}
		m.Loops = append(m.Loops, l)
		return true
	})
	for _, w := range res.Warnings {
		m.Warnings = append(m.Warnings, w.String())
	}
	return m
}
