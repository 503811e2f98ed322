package dom

import "testing"

func TestIsMainContent(t *testing.T) {
	html := `<body>
<header class="site"><img class="logo" src="/logo.png"></header>
<nav><a id="navlink" href="/">Home</a></nav>
<main><div class="sidebar"><img id="in-sidebar" src="/s.png"></div><p><img id="in-main" src="/m.png"></p></main>
<div class="content"><aside><img id="aside-in-content" src="/x.png"></aside></div>
<div class="page-header"><img id="header-class" src="/h.png"></div>
<div class="ad-slot"><img id="ad" src="/ad.png"></div>
<div class="download"><img id="download" src="/d.png"></div>
<div id="main-column"><img id="by-id" src="/i.png"></div>
<div role="navigation"><a id="role-nav" href="/n">n</a></div>
<article><div class="menu"><a id="article-menu" href="/m">m</a></div></article>
<div><img id="orphan" src="/o.png"></div>
</body>`
	doc := mustParse(t, "", html)

	tests := []struct {
		id   string
		want bool
	}{
		{"navlink", false},
		{"in-sidebar", false},
		{"in-main", true},
		{"aside-in-content", false},
		{"ad", false},
		{"download", false},
		{"by-id", true},
		{"role-nav", false},
		{"article-menu", false},
		{"orphan", false},
	}

	for _, tt := range tests {
		if got := InMainContent(doc.Find("#" + tt.id)); got != tt.want {
			t.Errorf("InMainContent(#%s) = %v, want %v", tt.id, got, tt.want)
		}
	}

	if got := InMainContent(doc.Find(".logo")); got {
		t.Errorf("expected header image to be chrome")
	}
}

func TestHasAdToken(t *testing.T) {
	tests := []struct {
		class string
		want  bool
	}{
		{"ad", true},
		{"ads wide", true},
		{"ad-slot", true},
		{"sidebar-ad", true},
		{"advertisement", true},
		{"header", false},
		{"download-link", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := hasAdToken(tt.class); got != tt.want {
			t.Errorf("hasAdToken(%q) = %v, want %v", tt.class, got, tt.want)
		}
	}
}
