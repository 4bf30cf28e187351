package models

import "fmt"

// Mode is the retrieval/synthesis strategy for a query. It is a closed set;
// ParseMode rejects anything else so an unimplemented mode can never slip
// through a default branch.
type Mode int

const (
	ModeDocs Mode = iota
	ModeWeb
	ModeHybrid
	ModeCode
)

func ParseMode(s string) (Mode, error) {
	switch s {
	case "docs":
		return ModeDocs, nil
	case "web":
		return ModeWeb, nil
	case "hybrid":
		return ModeHybrid, nil
	case "code":
		return ModeCode, nil
	default:
		return 0, fmt.Errorf("unknown mode: %q", s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeDocs:
		return "docs"
	case ModeWeb:
		return "web"
	case ModeHybrid:
		return "hybrid"
	case ModeCode:
		return "code"
	default:
		return "unknown"
	}
}

func (m Mode) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Mode) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("mode must be a string")
	}
	parsed, err := ParseMode(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
