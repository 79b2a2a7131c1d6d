package htmlutil

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<nav>
	<a href="/course/abc?lesson_id=1">  Lesson
		One </a>
	<a href="mailto:someone@example.com">mail</a>
	<a>no href</a>
</nav>
<main><a href="https://other.example/x">External <b>bold</b></a></main>
</body></html>`

func TestGetAnchors(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	base, err := url.Parse("https://stan.store/course/abc?token=t")
	require.NoError(t, err)

	anchors := GetAnchors(base, doc.Find("a"))
	expected := []Anchor{
		{Name: "Lesson One", Href: "https://stan.store/course/abc?lesson_id=1"},
		{Name: "External bold", Href: "https://other.example/x"},
	}
	if diff := cmp.Diff(expected, anchors); diff != "" {
		t.Fatal(diff)
	}
}

func TestNormalizeText(t *testing.T) {
	testCases := []struct {
		in, expect string
	}{
		{in: "", expect: ""},
		{in: "  a  ", expect: "a"},
		{in: "a\n\n\tb", expect: "a b"},
		{in: "x\u200by", expect: "xy"},
	}
	for _, test := range testCases {
		require.Equal(t, test.expect, NormalizeText(test.in), test.in)
	}
}

func TestResolve(t *testing.T) {
	base, err := url.Parse("https://stan.store/course/abc")
	require.NoError(t, err)

	require.Equal(t, "https://stan.store/course/abc?lesson_id=2", Resolve(base, "?lesson_id=2"))
	require.Equal(t, "https://stan.store/lesson/9", Resolve(base, "/lesson/9"))
	require.Equal(t, "", Resolve(base, "javascript:void(0)"))
	require.Equal(t, "", Resolve(base, "   "))
	require.Equal(t, "", Resolve(nil, "relative/path"))
}
