package page

// annotateScript stamps rendered geometry, computed background images,
// visibility and image load state onto elements, serialises the document and
// removes the stamps again.
const annotateScript = `() => {
	const stamped = [];
	const mark = (el, name, value) => { el.setAttribute(name, value); stamped.push([el, name]); };
	const sel = 'img, div, section, header, article, figure, aside, li, a, span, button, input, [role="button"]';
	for (const el of document.querySelectorAll(sel)) {
		const cs = getComputedStyle(el);
		if (cs.display === 'none' || cs.visibility === 'hidden') {
			mark(el, 'data-a11y-hidden', 'true');
			continue;
		}
		const r = el.getBoundingClientRect();
		if (r.width > 0 && r.height > 0) {
			mark(el, 'data-a11y-w', String(Math.round(r.width)));
			mark(el, 'data-a11y-h', String(Math.round(r.height)));
		}
		if (el.tagName === 'IMG') {
			if (el.complete && el.naturalWidth > 0) mark(el, 'data-a11y-loaded', 'true');
			continue;
		}
		const bg = cs.backgroundImage;
		if (bg && bg !== 'none') {
			const m = bg.match(/url\(\s*["']?([^"')]+)["']?\s*\)/);
			if (m) mark(el, 'data-a11y-bg', m[1]);
		}
	}
	const html = document.documentElement.outerHTML;
	for (const [el, name] of stamped) el.removeAttribute(name);
	return html;
}`

const setAttributeScript = `(selector, name, value) => {
	let el;
	try {
		el = document.querySelector(selector);
	} catch (e) {
		return 'invalid';
	}
	if (!el) return 'missing';
	el.setAttribute(name, value);
	return 'ok';
}`

// imageDataScript snapshots a loaded <img> through a canvas (JPEG 0.9, PNG
// when JPEG encoding throws). Tainted canvases and unloaded or non-img
// elements fall through to a same-origin fetch of src.
const imageDataScript = `async (selector, src) => {
	let el = null;
	try {
		el = selector ? document.querySelector(selector) : null;
	} catch (e) {}
	if (el && el.tagName === 'IMG' && el.complete && el.naturalWidth > 0) {
		try {
			const canvas = document.createElement('canvas');
			canvas.width = el.naturalWidth;
			canvas.height = el.naturalHeight;
			canvas.getContext('2d').drawImage(el, 0, 0);
			let uri;
			try {
				uri = canvas.toDataURL('image/jpeg', 0.9);
			} catch (e) {
				uri = canvas.toDataURL('image/png');
			}
			if (uri && uri.startsWith('data:image/')) return JSON.stringify({uri, via: 'canvas'});
		} catch (e) {}
	}
	try {
		const resp = await fetch(src, {credentials: 'include'});
		if (!resp.ok) return JSON.stringify({error: 'HTTP ' + resp.status});
		const blob = await resp.blob();
		const uri = await new Promise((resolve, reject) => {
			const reader = new FileReader();
			reader.onload = () => resolve(reader.result);
			reader.onerror = () => reject(reader.error);
			reader.readAsDataURL(blob);
		});
		return JSON.stringify({uri, via: 'fetch'});
	} catch (e) {
		return JSON.stringify({error: String(e)});
	}
}`
