package show

// MinSlides is the slide count DefaultCues needs.
const MinSlides = 6

// DefaultCues returns the compiled-in show. Slide indices stay below MinSlides.
func DefaultCues() []Cue {
	return []Cue{
		{Position{0, 0}, Black{}, None{}},
		{Position{0, 32}, Slide{Index: 0}, Fade{Duration: 4}},
		{Position{1, 0}, Slide{Index: 1}, SlideTransition{}},
		{Position{1, 32}, Slide{Index: 2}, SlideTransition{}},
		{Position{2, 0}, CDs{Stage: 2}, Blink{}},
		{Position{4, 0}, CDs{Stage: 3}, Fade{Duration: 0.5}},
		{Position{6, 0}, StarWars{Stage: 0}, Blink2{}},
		{Position{7, 0}, StarWars{Stage: 1}, None{}},
		{Position{8, 0}, Ocean{Stage: 0}, Fade{Duration: 2}},
		{Position{10, 0}, Smoke{Stage: 0}, Blink{}},
		{Position{11, 0}, Smoke{Stage: 1}, None{}},
		{Position{13, 0}, CDs{Stage: 4}, SlideTransition{}},
		{Position{14, 0}, Slide{Index: 5}, Fade{Duration: 3}},
		{Position{15, 0}, Black{}, Fade{Duration: 6}},
	}
}
