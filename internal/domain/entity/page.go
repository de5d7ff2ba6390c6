package entity

type ElementInfo struct {
	Index   int
	Text    string
	Visible bool
}

type Screenshot struct {
	Data   []byte
	Format string
	Width  int
	Height int
}
