package cdp

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrHarnessExists is returned when WriteSampleHarness would overwrite a file.
var ErrHarnessExists = errors.New("harness page already exists")

// SampleHarnessHTML is a minimal harness page. It reports results on the
// console and ends the run through window.callPhantom, the same contract a
// generated doctest page follows.
const SampleHarnessHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>doctest harness</title>
</head>
<body>
    <script>
        var failures = 0;
        var total = 0;

        function check(name, actual, expected) {
            total++;
            if (actual === expected) {
                console.log('ok ' + total + ' - ' + name);
            } else {
                failures++;
                console.log('not ok ' + total + ' - ' + name +
                    ' (expected ' + expected + ', got ' + actual + ')');
            }
        }

        window.addEventListener('load', function () {
            check('addition', 1 + 1, 2);
            check('string concat', 'doc' + 'test', 'doctest');

            console.log('1..' + total);
            console.log(failures === 0 ? 'all tests passed' : failures + ' test(s) failed');

            if (typeof window.callPhantom === 'function') {
                window.callPhantom({ cmd: 'doctest:exit', exitCode: failures === 0 ? 0 : 1 });
            }
        });
    </script>
</body>
</html>
`

// WriteSampleHarness writes SampleHarnessHTML to dir/pageFile and returns
// the path written. An existing file is kept unless force is set.
func WriteSampleHarness(dir, pageFile string, force bool) (string, error) {
	path := filepath.Join(dir, pageFile)

	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%w: %s", ErrHarnessExists, path)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(SampleHarnessHTML), 0o644); err != nil {
		return "", fmt.Errorf("failed to write harness page: %w", err)
	}

	return path, nil
}
