package rod

// Fixture pages served by httptest in the adapter tests.
const (
	BasicHTML = `<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
	<h1>Hello World</h1>
</body>
</html>`

	FormHTML = `<!DOCTYPE html>
<html>
<body>
	<form id="testForm">
		<input id="username" type="text" name="username" class="field wide" />
		<input id="password" type="password" name="password" class="field" />
		<button id="submit" type="submit">Submit</button>
	</form>
</body>
</html>`

	LinksHTML = `<!DOCTYPE html>
<html>
<body>
	<nav id="menu">
		<a href="/page1" id="link1">First page</a>
		<a href="/page2" id="link2">Second page</a>
	</nav>
	<a href="/outside" id="outside">Outside link</a>
</body>
</html>`

	VisibilityHTML = `<!DOCTYPE html>
<html>
<body>
	<p id="shown">Shown</p>
	<p id="hidden" style="display: none">Hidden</p>
</body>
</html>`

	DelayedHTML = `<!DOCTYPE html>
<html>
<body>
	<div id="target">Target</div>
	<script>
		setTimeout(function() {
			var el = document.createElement('p');
			el.id = 'late';
			el.textContent = 'Appeared';
			document.body.appendChild(el);
		}, 300);
		setTimeout(function() {
			document.getElementById('target').remove();
		}, 300);
	</script>
</body>
</html>`
)
