package harvest

import "courseharvest/internal/components/engine"

var (
	queryAnchors = engine.Query{
		Name: "anchors",
		Script: `() => Array.from(document.querySelectorAll('a[href]')).map(a => ({
			href: a.href,
			text: a.textContent || '',
		}))`,
	}
	queryNavAnchors = engine.Query{
		Name: "nav-anchors",
		Script: `() => {
			const container = document.querySelector('[class*="sidebar"], [class*="menu"], aside, nav');
			if (!container) {
				return [];
			}
			return Array.from(container.querySelectorAll('a[href]')).map(a => ({
				href: a.href,
				text: a.textContent || '',
			}));
		}`,
	}
	// headings in priority order: every h1, then every h2, then explicitly
	// marked lesson titles
	queryHeadings = engine.Query{
		Name: "headings",
		Script: `() => ['h1', 'h2', '[data-lesson-title], [class*="lesson-title"]']
			.flatMap(sel => Array.from(document.querySelectorAll(sel)))
			.map(e => e.textContent || '')`,
	}
)
