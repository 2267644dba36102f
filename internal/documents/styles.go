package documents

// paragraphStyle describes one style written into word/styles.xml.
type paragraphStyle struct {
	ID     string
	Name   string
	Bold   bool
	Italic bool
	Size   int // half-points
	Color  string
	Indent int // twips
	Before int // twips
	After  int // twips
}

const (
	HeadingColor = "1F2937"
	TitleColor   = "111111"
	AccentColor  = "B45309"
)

var styleTable = []paragraphStyle{
	{ID: "Normal", Name: "Normal", Size: 22, After: 120},
	{ID: "Title", Name: "Title", Bold: true, Size: 40, Color: TitleColor, After: 240},
	{ID: "Heading1", Name: "heading 1", Bold: true, Size: 32, Color: HeadingColor, Before: 360, After: 120},
	{ID: "Heading2", Name: "heading 2", Bold: true, Size: 28, Color: HeadingColor, Before: 240, After: 120},
	{ID: "Heading3", Name: "heading 3", Bold: true, Size: 24, Color: AccentColor, Before: 200, After: 80},
	{ID: "ListBullet", Name: "List Bullet", Size: 22, Indent: 360, After: 60},
	{ID: "Quote", Name: "Quote", Italic: true, Size: 22, Color: HeadingColor, Indent: 360, After: 120},
}
