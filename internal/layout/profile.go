package layout

import "errors"

// Profile is the grid geometry the workspace is laid out on.
type Profile struct {
	Columns int `json:"columns" yaml:"columns"`
	Rows    int `json:"rows" yaml:"rows"`

	// HotseatSlots is the number of hotseat positions.
	HotseatSlots int `json:"hotseat_slots" yaml:"hotseat_slots"`

	// AllAppsRank is the hotseat slot reserved for the all-apps button.
	AllAppsRank int `json:"all_apps_rank" yaml:"all_apps_rank"`
}

// DefaultProfile is a 4x4 phone grid with a five slot hotseat.
var DefaultProfile = Profile{
	Columns:      4,
	Rows:         4,
	HotseatSlots: 5,
	AllAppsRank:  2,
}

// Profile validation errors.
var (
	ErrGridTooSmall    = errors.New("grid needs at least one column and two rows")
	ErrHotseatTooSmall = errors.New("hotseat needs at least one slot")
	ErrAllAppsRank     = errors.New("all-apps rank outside hotseat")
)

// Validate checks the geometry. The last row of every screen is reserved,
// so at least two rows are required.
func (p Profile) Validate() error {
	if p.Columns < 1 || p.Rows < 2 {
		return ErrGridTooSmall
	}
	if p.HotseatSlots < 1 {
		return ErrHotseatTooSmall
	}
	if p.AllAppsRank < 0 || p.AllAppsRank >= p.HotseatSlots {
		return ErrAllAppsRank
	}
	return nil
}

// UsableRows returns the number of rows items may be walked onto.
func (p Profile) UsableRows() int {
	return p.Rows - 1
}
