// internal/browser/scripts.go
package browser

import "strings"

// Scripts are self-contained expressions so every driver can run them through
// ExecuteScript without argument marshalling.

// ReadyStateScript evaluates to true once the document has finished loading.
const ReadyStateScript = `document.readyState === "complete"`

// LivenessScript is a trivial round trip used to probe a session.
const LivenessScript = `1 + 1`

// VisibleScript evaluates to true when ref resolves to a rendered, non-hidden node.
func VisibleScript(ref ElementRef) string {
	return `(function () {
  const el = ` + ref.JSExpr() + `;
  if (!el) { return false; }
  const style = window.getComputedStyle(el);
  if (style.display === "none" || style.visibility === "hidden" || style.opacity === "0") { return false; }
  const rect = el.getBoundingClientRect();
  return rect.width > 0 && rect.height > 0;
})()`
}

// EnabledScript evaluates to true when ref resolves to a node that is not disabled.
func EnabledScript(ref ElementRef) string {
	return `(function () {
  const el = ` + ref.JSExpr() + `;
  return !!el && !el.disabled && el.getAttribute("aria-disabled") !== "true";
})()`
}

// HitTestScript scrolls the node into view and evaluates to true when the
// topmost element at its center is the node or one of its descendants.
func HitTestScript(ref ElementRef) string {
	return `(function () {
  const el = ` + ref.JSExpr() + `;
  if (!el) { return false; }
  el.scrollIntoView({ block: "center", inline: "center" });
  const rect = el.getBoundingClientRect();
  const hit = document.elementFromPoint(rect.left + rect.width / 2, rect.top + rect.height / 2);
  return !!hit && (hit === el || el.contains(hit));
})()`
}

// ClickScript dispatches a synthetic click directly on the node, bypassing hit-testing.
func ClickScript(ref ElementRef) string {
	return `(function () {
  const el = ` + ref.JSExpr() + `;
  if (!el) { throw new Error("element not found"); }
  el.dispatchEvent(new MouseEvent("click", { bubbles: true, cancelable: true, view: window }));
  return true;
})()`
}

// ClearScript empties an input or textarea and notifies listeners.
func ClearScript(ref ElementRef) string {
	return `(function () {
  const el = ` + ref.JSExpr() + `;
  if (!el) { throw new Error("element not found"); }
  el.focus();
  if ("value" in el) { el.value = ""; } else { el.textContent = ""; }
  el.dispatchEvent(new Event("input", { bubbles: true }));
  el.dispatchEvent(new Event("change", { bubbles: true }));
  return true;
})()`
}

// AttributeScript evaluates to the attribute value, or null when absent.
func AttributeScript(ref ElementRef, name string) string {
	return `(function () {
  const el = ` + ref.JSExpr() + `;
  if (!el) { throw new Error("element not found"); }
  return el.getAttribute(` + jsString(name) + `);
})()`
}

// RemoveOverlaysScript hides and removes every node matching selectors and
// evaluates to the number removed.
func RemoveOverlaysScript(selectors []string) string {
	quoted := make([]string, 0, len(selectors))
	for _, s := range selectors {
		quoted = append(quoted, jsString(s))
	}
	return `(function () {
  let removed = 0;
  for (const sel of [` + strings.Join(quoted, ", ") + `]) {
    let nodes;
    try { nodes = document.querySelectorAll(sel); } catch (e) { continue; }
    nodes.forEach(function (el) { el.style.display = "none"; el.remove(); removed++; });
  }
  return removed;
})()`
}

// ScrollIntoViewScript centers the node in the viewport.
func ScrollIntoViewScript(ref ElementRef) string {
	return `(function () {
  const el = ` + ref.JSExpr() + `;
  if (!el) { throw new Error("element not found"); }
  el.scrollIntoView({ block: "center", inline: "center" });
  return true;
})()`
}

// SelectByTextScript picks the <option> whose visible text equals text.
func SelectByTextScript(ref ElementRef, text string) string {
	return `(function () {
  const el = ` + ref.JSExpr() + `;
  if (!el || !el.options) { throw new Error("select element not found"); }
  const want = ` + jsString(text) + `;
  for (const opt of el.options) {
    if (opt.text.trim() === want) {
      el.value = opt.value;
      el.dispatchEvent(new Event("change", { bubbles: true }));
      return true;
    }
  }
  return false;
})()`
}

// TitleScript evaluates to the document title.
const TitleScript = `document.title`

// LocationScript evaluates to the current document URL.
const LocationScript = `window.location.href`
