package btest

// Reporting selects how much result-reporting support code gets compiled
// into a browser test.
type Reporting int

const (
	// ReportingFull injects the JS helpers plus the C side (the
	// REPORT_RESULT macro and its implementation). This is the norm, and
	// the zero value.
	ReportingFull Reporting = iota
	// ReportingJSOnly injects only the JS helpers (reportResultToServer
	// and the runtime exit hook).
	ReportingJSOnly
	// ReportingNone injects nothing; the test page reports by itself.
	ReportingNone
)

// reportingJS is injected as a --pre-js into every reporting btest. It posts
// the test's single result to /report_result and then closes the window.
// WCTEST_PORT_NUMBER is defined on the compiler command line.
const reportingJS = `var hasReported = false;

function reportResultToServer(result) {
  if (hasReported) {
    // A btest reports exactly once; extra reports are a test bug that the
    // server flags.
  }
  hasReported = true;
  var xhr = new XMLHttpRequest();
  if (result === 'skipped' || typeof result === 'string' && result.indexOf('skipped:') === 0) {
    xhr.open('GET', encodeURI('http://localhost:' + WCTEST_PORT_NUMBER + '/report_result?' + result), true);
  } else {
    xhr.open('GET', 'http://localhost:' + WCTEST_PORT_NUMBER + '/report_result?' + result + '|' + window.location.href, true);
  }
  xhr.onload = function() {
    if (typeof window === 'object' && window.close) {
      window.close();
    }
  };
  xhr.send();
}

function reportErrorToServer(message) {
  var xhr = new XMLHttpRequest();
  xhr.open('GET', encodeURI('http://localhost:' + WCTEST_PORT_NUMBER + '/?exception=' + message), true);
  xhr.send();
}

if (typeof window === 'object') {
  window.addEventListener('error', function(event) {
    reportErrorToServer(event.message || String(event.error));
  });
}

if (typeof Module === 'object') {
  Module['onExit'] = function(status) {
    reportResultToServer('exit:' + status);
  };
}
`

// reportResultHeader is force-included into the C/C++ sources of Full
// reporting btests.
const reportResultHeader = `#ifndef WCTEST_REPORT_RESULT_H
#define WCTEST_REPORT_RESULT_H

#ifdef __cplusplus
extern "C" {
#endif

void wctest_report_result(int result);

#ifdef __cplusplus
}
#endif

#define REPORT_RESULT(result) wctest_report_result(result)

#endif
`

// reportResultSource implements the macro by calling into the injected JS
// helper. It is compiled alongside the test case, not included from the
// header, since a test may consist of several translation units.
const reportResultSource = `#include <emscripten.h>

void wctest_report_result(int result) {
  EM_ASM({ reportResultToServer($0); }, result);
}
`
