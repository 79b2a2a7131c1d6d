package harvest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLessonUrl(t *testing.T) {
	testCases := []struct {
		name     string
		target   CourseTarget
		id       int64
		expected string
	}{
		{
			name:     "template",
			target:   CourseTarget{Url: "https://x/course/abc?lesson_id={id}", StartLessonId: 5},
			id:       16,
			expected: "https://x/course/abc?lesson_id=16",
		},
		{
			name: "template with token and store",
			target: CourseTarget{
				Url:   "https://x/course/abc?token={token}&store={store}&lesson_id={id}",
				Token: "t.k",
				Store: "42",
			},
			id:       7,
			expected: "https://x/course/abc?token=t.k&store=42&lesson_id=7",
		},
		{
			name:     "plain url",
			target:   CourseTarget{Url: "https://x/course/abc", Token: "tok", Store: "9"},
			id:       3,
			expected: "https://x/course/abc?lesson_id=3&store=9&token=tok",
		},
		{
			name:     "plain url replaces existing lesson id",
			target:   CourseTarget{Url: "https://x/course/abc?lesson_id=1"},
			id:       2,
			expected: "https://x/course/abc?lesson_id=2",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, test.target.LessonUrl(test.id))
		})
	}
}

func TestEntryUrl(t *testing.T) {
	plain := CourseTarget{Url: "https://x/course/abc", Token: "tok"}
	require.Equal(t, "https://x/course/abc?token=tok", plain.EntryUrl())

	plain.StartLessonId = 11
	require.Equal(t, "https://x/course/abc?lesson_id=11&token=tok", plain.EntryUrl())

	template := CourseTarget{Url: "https://x/c?lesson_id={id}", StartLessonId: 5}
	require.Equal(t, "https://x/c?lesson_id=5", template.EntryUrl())
}

func TestValidate(t *testing.T) {
	require.NoError(t, CourseTarget{Name: "a", Url: "https://x/course/abc"}.Validate())
	require.NoError(t, CourseTarget{Url: "https://x/c?lesson_id={id}", StartLessonId: 1}.Validate())

	require.Error(t, CourseTarget{Name: "empty"}.Validate())
	require.Error(t, CourseTarget{Url: "ftp://x/course"}.Validate())
	require.Error(t, CourseTarget{Url: "https://x/c?lesson_id={id}"}.Validate())
}

func TestDirname(t *testing.T) {
	require.Equal(t, "Fitness_ Week 1", CourseTarget{Name: "Fitness: Week 1"}.Dirname())
	require.Equal(t, "7b0e3c", CourseTarget{Url: "https://x/course/7b0e3c?lesson_id=1"}.Dirname())
	require.Equal(t, "course", CourseTarget{Url: "https://x/"}.Dirname())
}

func TestRedact(t *testing.T) {
	require.Equal(
		t,
		"https://x/course/abc?lesson_id=3&token=REDACTED",
		Redact("https://x/course/abc?lesson_id=3&token=secret"),
	)
	require.Equal(t, "https://x/course/abc", Redact("https://x/course/abc"))
	require.Equal(
		t,
		"https://x/course/abc?access_token=REDACTED&lesson_id=3",
		Redact("https://x/course/abc?lesson_id=3&access_token=secret"),
	)
}
