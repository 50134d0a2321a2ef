package harness

// harnessPage is the page a real browser keeps open for the whole suite.
// It polls /check; when the server replies COMMAND:<url> it opens the test
// page in a child window. Test pages close themselves after reporting, so
// the polling page is the only long-lived browser state.
const harnessPage = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>test harness</title>
</head>
<body>
<p>Harness running. Leave this page open; tests appear in a child window.</p>
<pre id="log"></pre>
<script>
var testWindow = null;

function log(text) {
  document.getElementById('log').textContent += text + '\n';
}

function check() {
  var xhr = new XMLHttpRequest();
  xhr.open('GET', '/check', true);
  xhr.onload = function() {
    var response = xhr.responseText;
    if (response.indexOf('COMMAND:') === 0) {
      var url = response.substring('COMMAND:'.length);
      log('running ' + url);
      if (testWindow && !testWindow.closed) testWindow.close();
      testWindow = window.open(url, 'webcc_test');
    }
    setTimeout(check, 250);
  };
  xhr.onerror = function() {
    // Server restarts between suites; keep polling.
    setTimeout(check, 1000);
  };
  xhr.send();
}

check();
</script>
</body>
</html>
`
