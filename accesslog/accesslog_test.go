// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package accesslog

import (
	"bytes"
	"fmt"
	"net"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/z5labs/wirehttp/http1"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entryPattern = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] \S+ - "[A-Z]+ \S+" \d{3} \d+$`)

func fixedClock() time.Time {
	return time.Date(2024, time.January, 2, 3, 4, 5, 0, time.Local)
}

func writeLines(t *testing.T, fs afero.Fs, path string, n int) []byte {
	t.Helper()

	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf, "[2024-01-02 03:04:05] 10.0.0.1 - \"GET /line/%d\" 200 10\n", i)
	}
	err := afero.WriteFile(fs, path, buf.Bytes(), 0o644)
	require.Nil(t, err)
	return buf.Bytes()
}

func TestNew(t *testing.T) {
	t.Run("will create the log file", func(t *testing.T) {
		t.Run("if the log is enabled", func(t *testing.T) {
			fs := afero.NewMemMapFs()

			_, err := New(Config{Enabled: true, Path: "access.log"}, FS(fs))
			if !assert.Nil(t, err) {
				return
			}

			exists, err := afero.Exists(fs, "access.log")
			if !assert.Nil(t, err) {
				return
			}
			if !assert.True(t, exists) {
				return
			}
		})
	})

	t.Run("will not create the log file", func(t *testing.T) {
		t.Run("if the log is disabled", func(t *testing.T) {
			fs := afero.NewMemMapFs()

			l, err := New(Config{Path: "access.log"}, FS(fs))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.False(t, l.Enabled()) {
				return
			}

			exists, err := afero.Exists(fs, "access.log")
			if !assert.Nil(t, err) {
				return
			}
			if !assert.False(t, exists) {
				return
			}
		})
	})

	t.Run("will return an OpenError", func(t *testing.T) {
		t.Run("if the log file can not be created", func(t *testing.T) {
			fs := afero.NewReadOnlyFs(afero.NewMemMapFs())

			_, err := New(Config{Enabled: true, Path: "access.log"}, FS(fs))

			var oerr OpenError
			if !assert.ErrorAs(t, err, &oerr) {
				return
			}
			if !assert.Equal(t, "access.log", oerr.Path) {
				return
			}
			if !assert.NotEmpty(t, oerr.Error()) {
				return
			}
			if !assert.Equal(t, oerr.Cause, oerr.Unwrap()) {
				return
			}
		})
	})
}

func TestLog_Log(t *testing.T) {
	req := http1.Request{Method: http1.MethodGet, Path: "/index.html"}
	resp := http1.Response{StatusCode: 200, Body: []byte("<h1>hi</h1>\n")}
	remote := &net.TCPAddr{IP: net.ParseIP("10.0.0.1"), Port: 53211}

	t.Run("will append a formatted entry", func(t *testing.T) {
		t.Run("if the log is enabled", func(t *testing.T) {
			fs := afero.NewMemMapFs()
			l, err := New(Config{Enabled: true, Path: "access.log"}, FS(fs), Clock(fixedClock))
			if !assert.Nil(t, err) {
				return
			}

			err = l.Log(req, resp, remote)
			if !assert.Nil(t, err) {
				return
			}
			err = l.Log(req, http1.Text(404, "404 Not Found"), remote)
			if !assert.Nil(t, err) {
				return
			}

			b, err := afero.ReadFile(fs, "access.log")
			if !assert.Nil(t, err) {
				return
			}

			expected := "[2024-01-02 03:04:05] 10.0.0.1 - \"GET /index.html\" 200 12\n" +
				"[2024-01-02 03:04:05] 10.0.0.1 - \"GET /index.html\" 404 13\n"
			if !assert.Equal(t, expected, string(b)) {
				return
			}
		})
	})

	t.Run("will do nothing", func(t *testing.T) {
		t.Run("if the log is disabled", func(t *testing.T) {
			fs := afero.NewMemMapFs()
			l, err := New(Config{Path: "access.log"}, FS(fs))
			if !assert.Nil(t, err) {
				return
			}

			err = l.Log(req, resp, remote)
			if !assert.Nil(t, err) {
				return
			}

			exists, err := afero.Exists(fs, "access.log")
			if !assert.Nil(t, err) {
				return
			}
			if !assert.False(t, exists) {
				return
			}
		})
	})

	t.Run("will keep the file bounded", func(t *testing.T) {
		t.Run("if many workers log concurrently", func(t *testing.T) {
			fs := afero.NewMemMapFs()
			l, err := New(Config{Enabled: true, Path: "access.log", MaxSizeBytes: 1024}, FS(fs))
			if !assert.Nil(t, err) {
				return
			}

			var wg sync.WaitGroup
			errs := make(chan error, 400)
			for w := 0; w < 8; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < 50; i++ {
						r := http1.Request{Method: http1.MethodPut, Path: fmt.Sprintf("/w%d/%d", w, i)}
						errs <- l.Log(r, resp, remote)
					}
				}(w)
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				if !assert.Nil(t, err) {
					return
				}
			}

			b, err := afero.ReadFile(fs, "access.log")
			if !assert.Nil(t, err) {
				return
			}
			if !assert.LessOrEqual(t, len(b), 1024) {
				return
			}
			for _, line := range strings.Split(strings.TrimSuffix(string(b), "\n"), "\n") {
				if !assert.Regexp(t, entryPattern, line) {
					return
				}
			}
		})
	})
}

func TestLog_EnforceSizeLimit(t *testing.T) {
	t.Run("will leave the file untouched", func(t *testing.T) {
		t.Run("if the file size is below the maximum", func(t *testing.T) {
			fs := afero.NewMemMapFs()
			before := writeLines(t, fs, "access.log", 3)

			l, err := New(Config{Enabled: true, Path: "access.log", MaxSizeBytes: int64(len(before)) + 1}, FS(fs))
			if !assert.Nil(t, err) {
				return
			}

			err = l.EnforceSizeLimit()
			if !assert.Nil(t, err) {
				return
			}

			after, err := afero.ReadFile(fs, "access.log")
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, before, after) {
				return
			}
		})

		t.Run("if the file size is equal to the maximum", func(t *testing.T) {
			fs := afero.NewMemMapFs()
			before := writeLines(t, fs, "access.log", 3)

			l, err := New(Config{Enabled: true, Path: "access.log", MaxSizeBytes: int64(len(before))}, FS(fs))
			if !assert.Nil(t, err) {
				return
			}

			err = l.EnforceSizeLimit()
			if !assert.Nil(t, err) {
				return
			}

			after, err := afero.ReadFile(fs, "access.log")
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, before, after) {
				return
			}
		})

		t.Run("if no maximum is configured", func(t *testing.T) {
			fs := afero.NewMemMapFs()
			before := writeLines(t, fs, "access.log", 10)

			l, err := New(Config{Enabled: true, Path: "access.log"}, FS(fs))
			if !assert.Nil(t, err) {
				return
			}

			err = l.EnforceSizeLimit()
			if !assert.Nil(t, err) {
				return
			}

			after, err := afero.ReadFile(fs, "access.log")
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, before, after) {
				return
			}
		})
	})

	t.Run("will drop the oldest lines", func(t *testing.T) {
		testCases := []struct {
			Name    string
			Lines   int
			Dropped int
		}{
			{Name: "if there are ten lines", Lines: 10, Dropped: 2},
			{Name: "if there are fewer than five lines", Lines: 3, Dropped: 1},
			{Name: "if there is a single line", Lines: 1, Dropped: 1},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				fs := afero.NewMemMapFs()
				before := writeLines(t, fs, "access.log", testCase.Lines)

				l, err := New(Config{Enabled: true, Path: "access.log", MaxSizeBytes: 1}, FS(fs))
				if !assert.Nil(t, err) {
					return
				}

				err = l.EnforceSizeLimit()
				if !assert.Nil(t, err) {
					return
				}

				after, err := afero.ReadFile(fs, "access.log")
				if !assert.Nil(t, err) {
					return
				}
				if !assert.Less(t, len(after), len(before)) {
					return
				}

				lines := bytes.SplitAfter(before, []byte("\n"))
				expected := bytes.Join(lines[testCase.Dropped:], nil)
				if !assert.Equal(t, string(expected), string(after)) {
					return
				}

				tmpExists, err := afero.Exists(fs, "access.log.tmp")
				if !assert.Nil(t, err) {
					return
				}
				if !assert.False(t, tmpExists) {
					return
				}
			})
		}
	})
}

func TestFormatEntry(t *testing.T) {
	req := http1.Request{Method: http1.MethodDelete, Path: "/kv?key=a"}
	resp := http1.Text(200, "Deleted")

	testCases := []struct {
		Name     string
		Remote   net.Addr
		Expected string
	}{
		{
			Name:     "tcp address",
			Remote:   &net.TCPAddr{IP: net.ParseIP("192.168.1.7"), Port: 4000},
			Expected: "[2024-01-02 03:04:05] 192.168.1.7 - \"DELETE /kv?key=a\" 200 7\n",
		},
		{
			Name:     "unknown address",
			Remote:   nil,
			Expected: "[2024-01-02 03:04:05] - - \"DELETE /kv?key=a\" 200 7\n",
		},
		{
			Name:     "pipe address",
			Remote:   pipeAddr{},
			Expected: "[2024-01-02 03:04:05] pipe - \"DELETE /kv?key=a\" 200 7\n",
		},
	}

	for _, testCase := range testCases {
		t.Run("will format the client ip from a "+testCase.Name, func(t *testing.T) {
			entry := FormatEntry(fixedClock(), req, resp, testCase.Remote)
			if !assert.Equal(t, testCase.Expected, entry) {
				return
			}
		})
	}
}

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }
