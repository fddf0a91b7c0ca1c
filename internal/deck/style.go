package deck

// StyleConfig carries every visual choice the writer makes. Colors are ARGB
// hex ("FF1E40AF"), palette entries RGB hex ("4472C4"), sizes in points.
// Titles are bold unless PlainTitles is set.
type StyleConfig struct {
	TitleSize    int  `json:"title_size"`
	SubtitleSize int  `json:"subtitle_size"`
	HeadingSize  int  `json:"heading_size"`
	BodySize     int  `json:"body_size"`
	SmallSize    int  `json:"small_size"`
	PlainTitles  bool `json:"plain_titles"`

	Primary    string `json:"primary"`
	Accent     string `json:"accent"`
	Text       string `json:"text"`
	Muted      string `json:"muted"`
	Background string `json:"background"`

	Palette []string `json:"palette"`
}

func DefaultStyle() StyleConfig {
	return StyleConfig{
		TitleSize:    36,
		SubtitleSize: 20,
		HeadingSize:  28,
		BodySize:     14,
		SmallSize:    12,
		Primary:      "FF1E40AF",
		Accent:       "FF3B82F6",
		Text:         "FF334155",
		Muted:        "FF94A3B8",
		Background:   "FFF8FAFC",
		Palette:      []string{"4472C4", "ED7D31", "A5A5A5", "FFC000", "5B9BD5", "70AD47"},
	}
}

// withDefaults fills zero fields from DefaultStyle.
func (s StyleConfig) withDefaults() StyleConfig {
	d := DefaultStyle()
	if s.TitleSize <= 0 {
		s.TitleSize = d.TitleSize
	}
	if s.SubtitleSize <= 0 {
		s.SubtitleSize = d.SubtitleSize
	}
	if s.HeadingSize <= 0 {
		s.HeadingSize = d.HeadingSize
	}
	if s.BodySize <= 0 {
		s.BodySize = d.BodySize
	}
	if s.SmallSize <= 0 {
		s.SmallSize = d.SmallSize
	}
	if s.Primary == "" {
		s.Primary = d.Primary
	}
	if s.Accent == "" {
		s.Accent = d.Accent
	}
	if s.Text == "" {
		s.Text = d.Text
	}
	if s.Muted == "" {
		s.Muted = d.Muted
	}
	if s.Background == "" {
		s.Background = d.Background
	}
	if len(s.Palette) == 0 {
		s.Palette = d.Palette
	}
	return s
}
