package harvest

import (
	"fmt"
	"strconv"
	"strings"
)

var forbiddenReplacer = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	`"`, "_",
	"/", "_",
	`\`, "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

// Sanitize makes a title safe to use inside a filename on every common
// filesystem. It is idempotent.
func Sanitize(raw string) string {
	return strings.TrimSpace(forbiddenReplacer.Replace(raw))
}

// PadWidth is the number of digits the sequence prefix is padded to for a run
// of count lessons, never less than 2.
func PadWidth(count int) int {
	width := len(strconv.Itoa(count))
	if width < 2 {
		return 2
	}
	return width
}

// LessonFilename is the name of the document for the lesson at seq. An empty
// title still yields a unique name through the sequence prefix.
func LessonFilename(seq, width int, title string) string {
	return fmt.Sprintf("%0*d_%s.pdf", width, seq, Sanitize(title))
}
