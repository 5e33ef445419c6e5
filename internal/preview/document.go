package preview

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"sitebuilder-backend/internal/project"
)

// PlaceholderMarker is carried by the document shown for an empty project.
const PlaceholderMarker = `data-preview-state="no-content"`

const bootstrapID = "preview-bootstrap"

const placeholderDocument = `<!DOCTYPE html>
<html lang="en" ` + PlaceholderMarker + `>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Live Preview - No Content</title>
<style>
body { margin: 0; min-height: 100vh; display: flex; align-items: center; justify-content: center; font-family: system-ui, -apple-system, sans-serif; background: #f8fafc; color: #475569; }
.placeholder { text-align: center; padding: 2rem; }
.placeholder h2 { margin: 0 0 .5rem; color: #1e293b; }
</style>
</head>
<body>
<div class="placeholder">
<h2>Ready for Live Preview</h2>
<p>Generate a project or open a file to see it rendered here.</p>
</div>
</body>
</html>
`

// bootstrapScript wires basic interactivity into generated pages. Each element
// is bound at most once; the global guard covers documents that load it twice.
const bootstrapScript = `<script id="` + bootstrapID + `">
(function () {
  if (window.__previewBootstrap) { return; }
  window.__previewBootstrap = true;

  function bind(el, fn) {
    if (el.hasAttribute('data-preview-bound')) { return; }
    el.setAttribute('data-preview-bound', 'true');
    fn(el);
  }

  function toast(message) {
    var box = document.createElement('div');
    box.textContent = message;
    box.style.cssText = 'position:fixed;top:20px;right:20px;z-index:9999;padding:12px 20px;border-radius:8px;background:#10b981;color:#fff;font-family:system-ui,sans-serif;box-shadow:0 4px 12px rgba(0,0,0,.15);transition:opacity .3s';
    document.body.appendChild(box);
    setTimeout(function () {
      box.style.opacity = '0';
      setTimeout(function () { box.remove(); }, 300);
    }, 3000);
  }

  function ripple(el, e) {
    var rect = el.getBoundingClientRect();
    var size = Math.max(rect.width, rect.height);
    var span = document.createElement('span');
    span.style.cssText = 'position:absolute;border-radius:50%;pointer-events:none;background:rgba(255,255,255,.5);transform:scale(0);transition:transform .6s,opacity .6s;width:' + size + 'px;height:' + size + 'px;left:' + (e.clientX - rect.left - size / 2) + 'px;top:' + (e.clientY - rect.top - size / 2) + 'px';
    if (getComputedStyle(el).position === 'static') { el.style.position = 'relative'; }
    el.style.overflow = 'hidden';
    el.appendChild(span);
    requestAnimationFrame(function () { span.style.transform = 'scale(2)'; span.style.opacity = '0'; });
    setTimeout(function () { span.remove(); }, 600);
  }

  function init() {
    document.querySelectorAll('a[href^="#"]').forEach(function (a) {
      bind(a, function (el) {
        el.addEventListener('click', function (e) {
          var sel = el.getAttribute('href');
          if (!sel || sel === '#') { return; }
          var target = null;
          try { target = document.querySelector(sel); } catch (err) { return; }
          if (!target) { return; }
          e.preventDefault();
          target.scrollIntoView({ behavior: 'smooth', block: 'start' });
        });
      });
    });

    document.querySelectorAll('form').forEach(function (form) {
      bind(form, function (el) {
        el.addEventListener('submit', function (e) {
          e.preventDefault();
          toast('Form submitted successfully! (Preview mode)');
        });
      });
    });

    document.querySelectorAll('button:not([type="submit"])').forEach(function (btn) {
      if (btn.onclick || btn.hasAttribute('onclick') || btn.hasAttribute('data-interactive')) { return; }
      bind(btn, function (el) {
        el.addEventListener('click', function (e) { ripple(el, e); });
      });
    });
  }

  if (document.readyState === 'loading') {
    document.addEventListener('DOMContentLoaded', init);
  } else {
    init();
  }
})();
</script>`

var (
	headCloseRe   = regexp.MustCompile(`(?i)</head\s*>`)
	htmlOpenRe    = regexp.MustCompile(`(?i)<html(\s[^>]*)?>`)
	bodyCloseRe   = regexp.MustCompile(`(?i)</body\s*>`)
	scriptCloseRe = regexp.MustCompile(`(?i)</(script)`)
	styleCloseRe  = regexp.MustCompile(`(?i)</(style)`)
)

func escapeScript(js string) string {
	return scriptCloseRe.ReplaceAllString(js, `<\/$1`)
}

func escapeStyle(css string) string {
	return styleCloseRe.ReplaceAllString(css, `<\/$1`)
}

// injectHead places extra head markup right before </head>, synthesising a
// head element when the document has none.
func injectHead(doc, extra string) string {
	if extra == "" {
		return doc
	}
	if loc := headCloseRe.FindStringIndex(doc); loc != nil {
		return doc[:loc[0]] + extra + doc[loc[0]:]
	}
	head := "<head>\n" + extra + "</head>\n"
	if loc := htmlOpenRe.FindStringIndex(doc); loc != nil {
		return doc[:loc[1]] + "\n" + head + doc[loc[1]:]
	}
	return head + doc
}

// injectBootstrap appends the interactivity script once, before the last
// </body> when there is one.
func injectBootstrap(doc string) string {
	if strings.Contains(doc, `id="`+bootstrapID+`"`) {
		return doc
	}
	locs := bodyCloseRe.FindAllStringIndex(doc, -1)
	if len(locs) == 0 {
		return doc + "\n" + bootstrapScript + "\n"
	}
	at := locs[len(locs)-1][0]
	return doc[:at] + bootstrapScript + "\n" + doc[at:]
}

func (r *Reconstructor) headExtras(doc, css string) string {
	var b strings.Builder
	if r.frameworkURL != "" && !strings.Contains(doc, r.frameworkURL) {
		fmt.Fprintf(&b, "<script src=\"%s\"></script>\n", html.EscapeString(r.frameworkURL))
	}
	if css != "" {
		b.WriteString("<style>\n")
		b.WriteString(escapeStyle(css))
		b.WriteString("\n</style>\n")
	}
	return b.String()
}

const baseStyle = `body { margin: 0; font-family: system-ui, -apple-system, "Segoe UI", Roboto, sans-serif; }`

func (r *Reconstructor) shell(title, body, css, js string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	b.WriteString(r.headExtras("", baseStyle+"\n"+css))
	b.WriteString("</head>\n<body>\n")
	b.WriteString(body)
	b.WriteString("\n")
	if strings.TrimSpace(js) != "" {
		b.WriteString("<script>\n")
		b.WriteString(escapeScript(js))
		b.WriteString("\n</script>\n")
	}
	b.WriteString(bootstrapScript)
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}

func (r *Reconstructor) summaryDocument(files *project.Files, css string) string {
	var body strings.Builder
	body.WriteString("<main class=\"preview-summary\" style=\"max-width:720px;margin:3rem auto;padding:0 1.5rem\">\n")
	body.WriteString("<h1>Project generated</h1>\n")
	fmt.Fprintf(&body, "<p>Successfully generated %d files</p>\n<ul>\n", files.Len())
	files.Each(func(f project.ProjectFile) {
		fmt.Fprintf(&body, "<li><code>%s</code> <span class=\"file-kind\">%s</span></li>\n",
			html.EscapeString(f.Path), html.EscapeString(string(project.Classify(f.Path, f.Type))))
	})
	body.WriteString("</ul>\n</main>")
	return r.shell("Live Preview", body.String(), css, "")
}
