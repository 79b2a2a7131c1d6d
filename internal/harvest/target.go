package harvest

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"courseharvest/internal/components/telemetry"
)

const (
	idPlaceholder    = "{id}"
	tokenPlaceholder = "{token}"
	storePlaceholder = "{store}"

	lessonIdParam = "lesson_id"
	tokenParam    = "token"
	storeParam    = "store"
)

// CourseTarget is one course to harvest. Url is either a plain course url, in
// which case the token, store and lesson id are added as query parameters, or
// a template containing {id} (and optionally {token} and {store}).
type CourseTarget struct {
	Name          string
	Url           string
	Token         string
	Store         string
	StartLessonId int64
}

func (t CourseTarget) isTemplate() bool {
	return strings.Contains(t.Url, idPlaceholder)
}

func (t CourseTarget) Validate() error {
	if t.Url == "" {
		return fmt.Errorf("course %q: url is empty", t.Name)
	}
	parsed, err := url.Parse(strings.NewReplacer(
		idPlaceholder, "0",
		tokenPlaceholder, "",
		storePlaceholder, "",
	).Replace(t.Url))
	if err != nil {
		return fmt.Errorf("course %q: %w", t.Name, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("course %q: url must be http(s), got %q", t.Name, t.Url)
	}
	if t.isTemplate() && t.StartLessonId <= 0 {
		return fmt.Errorf("course %q: templated url needs a start lesson id", t.Name)
	}
	return nil
}

// LessonUrl builds the url of the lesson with the given numeric id.
func (t CourseTarget) LessonUrl(id int64) string {
	if t.isTemplate() {
		return strings.NewReplacer(
			idPlaceholder, strconv.FormatInt(id, 10),
			tokenPlaceholder, url.QueryEscape(t.Token),
			storePlaceholder, url.QueryEscape(t.Store),
		).Replace(t.Url)
	}
	return t.withQuery(strconv.FormatInt(id, 10))
}

// EntryUrl is the first page loaded for the course: the start lesson when one
// is known, the bare course page otherwise.
func (t CourseTarget) EntryUrl() string {
	if t.StartLessonId > 0 {
		return t.LessonUrl(t.StartLessonId)
	}
	return t.withQuery("")
}

func (t CourseTarget) withQuery(lessonId string) string {
	parsed, err := url.Parse(t.Url)
	if err != nil {
		return t.Url
	}
	query := parsed.Query()
	if t.Token != "" {
		query.Set(tokenParam, t.Token)
	}
	if t.Store != "" {
		query.Set(storeParam, t.Store)
	}
	if lessonId != "" {
		query.Set(lessonIdParam, lessonId)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// Dirname is the name of the course's output directory.
func (t CourseTarget) Dirname() string {
	if name := Sanitize(t.Name); name != "" {
		return name
	}
	parsed, err := url.Parse(t.Url)
	if err == nil {
		segment := Sanitize(path.Base(parsed.Path))
		if segment != "" && segment != "." && segment != "_" {
			return segment
		}
	}
	return "course"
}

// Redact hides the access token in a url so it can be logged or stored.
func Redact(raw string) string {
	return telemetry.ScrubUrl(raw)
}
