// Package hotness tracks how often map areas are queried.
package hotness

type Entry struct {
	Cell  string  `json:"cell"`
	Score float64 `json:"score"`
}

type Interface interface {
	Inc(cell string)
	Score(cell string) float64
	Reset(cells ...string)
	// Top returns up to n cells by descending score.
	Top(n int) []Entry
}
