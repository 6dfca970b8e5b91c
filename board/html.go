package board

import (
	"html"
	"strconv"
	"strings"
)

// boardAttr is the data-board value the page scripts expect.
func boardAttr(s Side) string {
	if s == Self {
		return "user"
	}
	return "pc"
}

// HTML renders a frame as a table, one td per cell carrying its class and
// data-i/data-j/data-board attributes. Interactive cells also get the
// "clickable" class.
func HTML(f Frame) string {
	var sb strings.Builder
	sb.WriteString(`<table class="board" data-board="`)
	sb.WriteString(boardAttr(f.Side))
	sb.WriteString(`">`)
	for _, row := range f.Rows {
		sb.WriteString("<tr>")
		for _, c := range row {
			cls := c.Class.String()
			if f.Interactive {
				cls = "clickable " + cls
			}
			sb.WriteString(`<td class="`)
			sb.WriteString(cls)
			sb.WriteString(`" data-i="`)
			sb.WriteString(strconv.Itoa(c.Row))
			sb.WriteString(`" data-j="`)
			sb.WriteString(strconv.Itoa(c.Col))
			sb.WriteString(`" data-board="`)
			sb.WriteString(boardAttr(f.Side))
			sb.WriteString(`"></td>`)
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</table>")
	return sb.String()
}

// StatusHTML renders a fleet list; sunk ships get class="sunk".
func StatusHTML(entries []StatusEntry) string {
	var sb strings.Builder
	sb.WriteString("<ul>")
	for _, e := range entries {
		if e.Sunk {
			sb.WriteString(`<li class="sunk">`)
		} else {
			sb.WriteString("<li>")
		}
		sb.WriteString(html.EscapeString(e.Label))
		sb.WriteString("</li>")
	}
	sb.WriteString("</ul>")
	return sb.String()
}
