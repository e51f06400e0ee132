package scraper

// Worker is a background job polled through the jobs API.
type Worker interface {
	StartWork()
	Result() interface{}
	Progress() float64
	Done() bool
	Error() error
}
