package viewstate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wolfman30/clinic-calendar/internal/calendar"
)

// ViewSettings are the display toggles of one view.
type ViewSettings struct {
	ShowCurrentTimeIndicator bool `json:"showCurrentTimeIndicator" yaml:"show_current_time_indicator"`
	ShowHoverTimeIndicator   bool `json:"showHoverTimeIndicator" yaml:"show_hover_time_indicator"`
	EnableTimeSlotClick      bool `json:"enableTimeSlotClick" yaml:"enable_time_slot_click"`
	EnableTimeBlockClick     bool `json:"enableTimeBlockClick" yaml:"enable_time_block_click"`
	EventLimit               int  `json:"eventLimit,omitempty" yaml:"event_limit"`
	PreviewEventsPerMonth    int  `json:"previewEventsPerMonth,omitempty" yaml:"preview_events_per_month"`
	StartHour                int  `json:"startHour" yaml:"start_hour"`
	EndHour                  int  `json:"endHour" yaml:"end_hour"`
}

// Settings holds ViewSettings per view.
type Settings map[calendar.View]ViewSettings

// DefaultSettings returns the built-in per-view defaults.
func DefaultSettings() Settings {
	timed := ViewSettings{
		ShowCurrentTimeIndicator: true,
		ShowHoverTimeIndicator:   true,
		EnableTimeSlotClick:      true,
		StartHour:                0,
		EndHour:                  24,
	}
	week := timed
	week.EnableTimeBlockClick = true
	return Settings{
		calendar.ViewDay:   timed,
		calendar.ViewDays:  timed,
		calendar.ViewWeek:  week,
		calendar.ViewMonth: {EventLimit: 3},
		calendar.ViewYear:  {PreviewEventsPerMonth: 3},
	}
}

// For returns the settings of view, falling back to the defaults.
func (s Settings) For(view calendar.View) ViewSettings {
	if vs, ok := s[view]; ok {
		return vs
	}
	return DefaultSettings()[view]
}

// Clone copies the map so reducers never share it.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

type settingsFile struct {
	Views map[string]yaml.Node `yaml:"views"`
}

// LoadSettingsFile reads view defaults from a YAML file and merges them over
// DefaultSettings. An empty path returns the defaults.
//
//	views:
//	  month:
//	    event_limit: 4
func LoadSettingsFile(path string) (Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("viewstate: read settings %s: %w", path, err)
	}
	return mergeSettings(settings, data)
}

func mergeSettings(base Settings, data []byte) (Settings, error) {
	var file settingsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("viewstate: parse settings: %w", err)
	}
	for name, node := range file.Views {
		view := calendar.View(name)
		if calendar.ParseView(name) != view {
			return nil, fmt.Errorf("viewstate: unknown view %q in settings", name)
		}
		// keys missing from the file keep the base value
		vs := base.For(view)
		if err := node.Decode(&vs); err != nil {
			return nil, fmt.Errorf("viewstate: parse %s settings: %w", name, err)
		}
		base[view] = vs
	}
	return base, nil
}
