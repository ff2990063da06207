package domain

// VacationsHeader titles the rendered vacation list.
const VacationsHeader = "Past Vacations"

// VacationItem is one rendered vacation line.
type VacationItem struct {
	Index     int    `json:"index"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Text      string `json:"text"`
}

// VacationsView is the rendered vacation list. An empty collection renders
// an empty view with no header.
type VacationsView struct {
	Header string         `json:"header,omitempty"`
	Items  []VacationItem `json:"items"`
}

// RenderVacations builds the view from an already sorted collection.
func RenderVacations(vacations []Vacation, f *DateFormatter) VacationsView {
	view := VacationsView{Items: make([]VacationItem, 0, len(vacations))}
	if len(vacations) == 0 {
		return view
	}

	view.Header = VacationsHeader
	for i, v := range vacations {
		view.Items = append(view.Items, VacationItem{
			Index:     i,
			StartDate: v.StartDate,
			EndDate:   v.EndDate,
			Text:      "From " + f.Format(v.StartDate) + " to " + f.Format(v.EndDate),
		})
	}
	return view
}

// JokesView is the rendered joke list plus the last notification status.
type JokesView struct {
	Jokes  []Joke `json:"jokes"`
	Status string `json:"status,omitempty"`
}
