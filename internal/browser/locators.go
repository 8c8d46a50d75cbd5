package browser

// Locator scripts run in the page and return the matching element or null.
// Matching normalizes whitespace and prefers an exact, case-insensitive match
// over a substring match.

const jsMatchHelpers = `
const norm = (s) => (s || '').replace(/\s+/g, ' ').trim().toLowerCase();
const pick = (candidates, textOf, wanted) => {
	const w = norm(wanted);
	const exact = candidates.find((c) => norm(textOf(c)) === w);
	if (exact) return exact;
	return candidates.find((c) => norm(textOf(c)).includes(w)) || null;
};
`

const jsGetByLabel = `(wanted) => {` + jsMatchHelpers + `
	const controlOf = (label) => label.control
		|| (label.htmlFor && document.getElementById(label.htmlFor))
		|| label.querySelector('input, textarea, select');
	const labels = Array.from(document.querySelectorAll('label')).filter((l) => controlOf(l));
	const label = pick(labels, (l) => l.innerText || l.textContent, wanted);
	if (label) return controlOf(label);
	const aria = Array.from(document.querySelectorAll('[aria-label]'));
	return pick(aria, (el) => el.getAttribute('aria-label'), wanted);
}`

const jsGetByPlaceholder = `(wanted) => {` + jsMatchHelpers + `
	const fields = Array.from(document.querySelectorAll('[placeholder]'));
	return pick(fields, (el) => el.getAttribute('placeholder'), wanted);
}`

const jsGetByText = `(wanted) => {` + jsMatchHelpers + `
	const w = norm(wanted);
	const all = Array.from(document.body.querySelectorAll('*'))
		.filter((el) => !['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE'].includes(el.tagName));
	const containing = all.filter((el) => norm(el.innerText || el.textContent).includes(w));
	const innermost = containing.filter((el) => !Array.from(el.children).some((c) => containing.includes(c)));
	return pick(innermost, (el) => el.innerText || el.textContent, wanted);
}`

const jsGetByRole = `(role, name) => {` + jsMatchHelpers + `
	const implicit = {
		button: 'button, input[type=button], input[type=submit], input[type=reset]',
		link: 'a[href], area[href]',
		textbox: 'textarea, input:not([type]), input[type=text], input[type=email], input[type=tel], input[type=url], input[type=search], input[type=password]',
		checkbox: 'input[type=checkbox]',
		radio: 'input[type=radio]',
		combobox: 'select',
		heading: 'h1, h2, h3, h4, h5, h6',
		form: 'form',
		img: 'img[alt]',
	};
	const selector = '[role="' + role + '"]' + (implicit[role] ? ', ' + implicit[role] : '');
	const candidates = Array.from(document.querySelectorAll(selector))
		.filter((el) => !el.getAttribute('role') || el.getAttribute('role') === role);
	if (!name) return candidates[0] || null;
	const accessibleName = (el) => {
		if (el.getAttribute('aria-label')) return el.getAttribute('aria-label');
		const by = el.getAttribute('aria-labelledby');
		if (by) return by.split(/\s+/).map((id) => (document.getElementById(id) || {}).textContent || '').join(' ');
		if (el.labels && el.labels.length) return Array.from(el.labels).map((l) => l.textContent).join(' ');
		if (el.tagName === 'INPUT') return el.value || el.getAttribute('placeholder') || '';
		if (el.tagName === 'IMG') return el.getAttribute('alt');
		return el.innerText || el.textContent || el.getAttribute('title') || '';
	};
	return pick(candidates, accessibleName, name);
}`
