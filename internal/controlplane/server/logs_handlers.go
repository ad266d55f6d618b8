package server

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/betbot/wfmtrader/pkg/logger"
)

// allowedLogs 可通过接口读取的组件日志
var allowedLogs = map[string]bool{
	"wfmtrader":   true,
	"live_trader": true,
	"eelog":       true,
}

func (s *Server) handleLogsTail(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	if !allowedLogs[name] {
		writeError(w, http.StatusNotFound, "unknown log")
		return
	}
	path := logger.LogPath(name)
	if path == "" {
		writeError(w, http.StatusNotFound, "file logging is disabled")
		return
	}

	tailN := 200
	if v := strings.TrimSpace(r.URL.Query().Get("tail")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 5000 {
			tailN = n
		}
	}

	lines, err := tailLines(path, tailN, 256*1024)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, http.StatusOK, map[string]any{"log": name, "lines": []string{}})
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("read log: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"log": name, "lines": lines})
}

// tailLines: 从文件末尾最多读取 maxBytes，取最后 n 行。
func tailLines(path string, n int, maxBytes int64) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := st.Size()
	if size <= 0 {
		return []string{}, nil
	}

	start := int64(0)
	if size > maxBytes {
		start = size - maxBytes
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}

	r := bufio.NewReader(f)
	var lines []string
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			lines = append(lines, strings.TrimRight(line, "\r\n"))
			if len(lines) > n {
				// 只保留最后 n 行（滑动窗口）
				lines = lines[len(lines)-n:]
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
	}
	return lines, nil
}
