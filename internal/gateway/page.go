// internal/gateway/page.go
package gateway

import "html/template"

// indexPage is the submission form. Kept inline so the gateway binary has
// no runtime asset dependencies.
var indexPage = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>Company Research Assistant</title>
	<style>
		body { font-family: sans-serif; max-width: 640px; margin: 3rem auto; }
		label { display: block; margin-top: 1rem; }
		input[type=text] { width: 100%; padding: 0.4rem; }
		button { margin-top: 1.5rem; padding: 0.5rem 1.5rem; }
	</style>
</head>
<body>
	<h1>Company Research Assistant</h1>
	<p>Enter a company name to generate a research report.</p>
	<form method="post" action="/research">
		<label for="company_name">Company name</label>
		<input type="text" id="company_name" name="company_name" list="examples" placeholder="e.g. Acme Corp" required>
		<datalist id="examples">
			<option value="Tesla">
			<option value="Stripe">
			<option value="Shopify">
			<option value="Airbnb">
			<option value="SpaceX">
		</datalist>

		<label for="depth">Research depth</label>
		<select id="depth" name="depth">
			<option value="basic">Basic (faster)</option>
			<option value="comprehensive">Comprehensive (market and news analysis)</option>
		</select>

		<button type="submit">Start research</button>
	</form>
</body>
</html>
`))
