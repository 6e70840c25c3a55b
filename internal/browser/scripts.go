package browser

import (
	"encoding/json"
	"fmt"

	"github.com/user/ferry-watch/internal/domain"
)

// evalResult is what every page script returns.
type evalResult struct {
	OK    bool   `json:"ok"`
	Count int    `json:"count"`
	Value string `json:"value"`
	Error string `json:"error"`
}

func (r evalResult) err() error {
	switch {
	case r.OK:
		return nil
	case r.Count == 0 && r.Error == "no match":
		return ErrNoMatch
	default:
		return fmt.Errorf("%w: %s", ErrRejected, r.Error)
	}
}

// locateJS resolves `matches` for a selector. Text filters drop an element
// when a descendant matching the same CSS also holds the text, unless deep,
// so wrappers of a matching button are not counted twice.
const locateJS = `
const css = %s, needle = %s, deep = %t;
let all;
try { all = Array.from(document.querySelectorAll(css)); }
catch (e) { return {ok: false, count: 0, value: "", error: "bad selector: " + e.message}; }
const textOf = el => (el.innerText || el.textContent || "").toLowerCase();
const matches = needle === "" ? all : all.filter(el =>
	textOf(el).includes(needle) &&
	(deep || !Array.from(el.querySelectorAll(css)).some(d => textOf(d).includes(needle))));
const noMatch = {ok: false, count: 0, value: "", error: "no match"};
`

const countBody = `return {ok: true, count: matches.length, value: "", error: ""};`

const clickBody = `
if (!matches.length) return noMatch;
const el = matches[0];
if (el.scrollIntoView) el.scrollIntoView({block: "center"});
el.click();
return {ok: true, count: matches.length, value: "", error: ""};`

const selectBody = `
if (!matches.length) return noMatch;
const el = matches[0];
const label = %s;
if (!el.options) return {ok: false, count: matches.length, value: "", error: "not a select element"};
const want = label.trim().toLowerCase();
const opt = Array.from(el.options).find(o => (o.label || o.text || "").trim().toLowerCase() === want);
if (!opt) return {ok: false, count: matches.length, value: "", error: "option not found: " + label};
el.value = opt.value;
opt.selected = true;
el.dispatchEvent(new Event("input", {bubbles: true}));
el.dispatchEvent(new Event("change", {bubbles: true}));
return {ok: true, count: matches.length, value: String(el.value), error: ""};`

// fillBody uses the prototype setter so framework-managed inputs see the change.
const fillBody = `
if (!matches.length) return noMatch;
const el = matches[0];
const value = %s;
if (!("value" in el)) return {ok: false, count: matches.length, value: "", error: "element has no value"};
const desc = Object.getOwnPropertyDescriptor(Object.getPrototypeOf(el), "value");
const set = v => { if (desc && desc.set) { desc.set.call(el, v); } else { el.value = v; } };
if (el.focus) el.focus();
set("");
el.dispatchEvent(new Event("input", {bubbles: true}));
set(value);
el.dispatchEvent(new Event("input", {bubbles: true}));
el.dispatchEvent(new Event("change", {bubbles: true}));
if (el.blur) el.blur();
return {ok: true, count: matches.length, value: String(el.value ?? ""), error: ""};`

const valueBody = `
if (!matches.length) return noMatch;
return {ok: true, count: matches.length, value: String(matches[0].value ?? ""), error: ""};`

const visibleTextJS = `document.body ? document.body.innerText : ""`

func selectorScript(sel domain.Selector, body string) string {
	return "(() => {" + fmt.Sprintf(locateJS, jsString(sel.CSS), jsString(sel.Needle()), sel.Deep) + body + "\n})()"
}

func jsString(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}
