package httpx

import (
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/daltay15/rangeserve/api/internal"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

const rangeUnitPrefix = "bytes="

// ErrUnsatisfiable is returned when a range does not overlap the file.
var ErrUnsatisfiable = errors.New("range not satisfiable")

// ByteRange is an end-inclusive byte range.
type ByteRange struct {
	Start int64
	End   int64
}

// Length is the number of bytes covered by the range.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange renders the Content-Range value for a file of size bytes.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// RangeSpec is a parsed Range header. A nil End means "to end of file".
type RangeSpec struct {
	Start int64
	End   *int64
}

// ParseRange parses "bytes=<start>-<end>" where end may be empty. Suffix
// ranges and multiple ranges are rejected.
func ParseRange(header string) (RangeSpec, error) {
	set := strings.TrimPrefix(strings.TrimSpace(header), rangeUnitPrefix)

	parts := strings.Split(set, "-")
	if len(parts) != 2 {
		return RangeSpec{}, errors.Errorf("expected <start>-<end>, got %q", set)
	}

	start, err := parseOffset(parts[0])
	if err != nil {
		return RangeSpec{}, errors.Wrap(err, "start")
	}

	out := RangeSpec{Start: start}
	if endStr := strings.TrimSpace(parts[1]); endStr != "" {
		end, err := parseOffset(endStr)
		if err != nil {
			return RangeSpec{}, errors.Wrap(err, "end")
		}
		out.End = &end
	}
	return out, nil
}

func parseOffset(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("missing offset")
	}
	digits := strings.TrimPrefix(s, "+")
	if digits == "" {
		return 0, errors.Errorf("invalid offset %q", s)
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, errors.Errorf("invalid offset %q", s)
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, errors.Errorf("offset %q out of range", s)
	}
	return n, nil
}

// Resolve checks the range against a file of size bytes. An end past the last
// byte is clamped to it.
func (s RangeSpec) Resolve(size int64) (ByteRange, error) {
	end := size - 1
	if s.End != nil && *s.End < end {
		end = *s.End
	}
	if s.Start >= size || s.Start > end {
		return ByteRange{}, ErrUnsatisfiable
	}
	return ByteRange{Start: s.Start, End: end}, nil
}

// RangeHandler serves single byte ranges of regular files under a root and
// defers everything else to the standard file server.
type RangeHandler struct {
	fs       http.FileSystem
	files    http.Handler
	resolver *MimeResolver
	metrics  *Metrics
}

func NewRangeHandler(root string, resolver *MimeResolver, metrics *Metrics) *RangeHandler {
	dir := http.Dir(root)
	return &RangeHandler{
		fs:       dir,
		files:    http.FileServer(dir),
		resolver: resolver,
		metrics:  metrics,
	}
}

func cleanPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func (h *RangeHandler) open(name string) (http.File, fs.FileInfo, error) {
	f, err := h.fs.Open(name)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, errors.Wrapf(err, "stat %s", name)
	}
	return f, info, nil
}

// Delegate hands the request to the standard file server. The content type
// of a regular file still comes from the resolver, except on paths the file
// server answers with a redirect.
func (h *RangeHandler) Delegate(c *gin.Context) {
	if !redirectsToCanonical(c.Request.URL.Path) {
		name := cleanPath(c.Request.URL.Path)
		if f, info, err := h.open(name); err == nil {
			f.Close()
			if info.Mode().IsRegular() {
				c.Header("Content-Type", h.resolver.Resolve(name))
			}
		}
	}
	h.files.ServeHTTP(c.Writer, c.Request)
}

// redirectsToCanonical reports whether http.FileServer redirects p instead of
// serving a file body.
func redirectsToCanonical(p string) bool {
	return (p != "/" && strings.HasSuffix(p, "/")) || strings.HasSuffix(p, "/index.html")
}

// Handle serves GET requests: a 206 slice when a Range header names a regular
// file, the standard file server otherwise.
func (h *RangeHandler) Handle(c *gin.Context) {
	rangeHeader := c.GetHeader("Range")
	if rangeHeader == "" || redirectsToCanonical(c.Request.URL.Path) {
		h.Delegate(c)
		return
	}

	name := cleanPath(c.Request.URL.Path)
	f, info, err := h.open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			h.Delegate(c)
			return
		}
		h.fail(c, name, errors.Wrapf(err, "open %s", name))
		return
	}
	defer f.Close()

	if !info.Mode().IsRegular() {
		h.Delegate(c)
		return
	}
	size := info.Size()

	rs, err := ParseRange(rangeHeader)
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid range header: %v", err)
		return
	}

	br, err := rs.Resolve(size)
	if err != nil {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", size))
		c.String(http.StatusRequestedRangeNotSatisfiable, "Requested range not satisfiable")
		return
	}

	if _, err := f.Seek(br.Start, io.SeekStart); err != nil {
		h.fail(c, name, errors.Wrapf(err, "seek %s to %d", name, br.Start))
		return
	}

	hdr := c.Writer.Header()
	hdr.Set("Content-Range", br.ContentRange(size))
	hdr.Set("Accept-Ranges", "bytes")
	hdr.Set("Content-Length", strconv.FormatInt(br.Length(), 10))
	hdr.Set("Content-Type", h.resolver.Resolve(name))
	c.Writer.WriteHeader(http.StatusPartialContent)
	c.Writer.WriteHeaderNow()

	n, err := io.CopyN(c.Writer, f, br.Length())
	h.metrics.addPartialBytes(n)
	if err != nil {
		// Status is on the wire, the short body makes net/http drop the connection.
		internal.NotifyError(internal.SeverityWarning, "range", "partial content write incomplete", map[string]interface{}{
			"path":     name,
			"range":    br.ContentRange(size),
			"written":  n,
			"expected": br.Length(),
			"error":    err.Error(),
		})
	}
}

func (h *RangeHandler) fail(c *gin.Context, name string, err error) {
	internal.NotifyError(internal.SeverityError, "range", "request failed", map[string]interface{}{
		"path":  name,
		"error": err.Error(),
	})
	if c.Writer.Written() {
		return
	}
	c.String(http.StatusInternalServerError, err.Error())
}
