package static

const pageHTML = `<!DOCTYPE html>
<html>
<head><title>  Static Page </title><style>.x{}</style></head>
<body>
	<form id="login" name="login">
		<input id="user" name="user" class="field wide" type="text" />
		<input id="token" name="token" type="hidden" value="t" />
		<button id="go" class="btn primary">Sign <b>in</b></button>
	</form>
	<nav>
		<a href="/a" class="link">Home   page</a>
		<a href="/b" class="link" style="visibility: hidden">Secret page</a>
	</nav>
	<div hidden><p id="ghost">Ghost</p></div>
	<section style="display:none"><span id="nested">Nested</span></section>
	<p id="multi">first<br>second <script>ignored()</script></p>
</body>
</html>`
