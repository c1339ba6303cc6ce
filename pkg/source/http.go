package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aditip149209/okview/pkg/binding"
	"github.com/aditip149209/okview/pkg/console"
	"github.com/aditip149209/okview/pkg/table"
)

// HTTP fetches tables from a remote console.
type HTTP struct {
	Base   string
	Client *http.Client
	// Sort is asked of the console when the fetch context carries none.
	Sort binding.SortState
}

func NewHTTP(base string) *HTTP {
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &HTTP{
		Base:   strings.TrimSuffix(base, "/"),
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *HTTP) get(ctx context.Context, path string, q url.Values, out any) (int, error) {
	u := h.Base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e console.ErrResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Message != "" {
			return resp.StatusCode, fmt.Errorf("console answered %s: %s", resp.Status, e.Message)
		}
		return resp.StatusCode, fmt.Errorf("console answered %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding console response: %w", err)
	}
	return resp.StatusCode, nil
}

// Tags lists the table resources the console serves.
func (h *HTTP) Tags(ctx context.Context) ([]string, error) {
	var tags []string
	if _, err := h.get(ctx, "/api/tables", nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// Presorted reports that the console orders the rows. Cells arrive already
// formatted, so sorting them again locally would compare display strings.
func (h *HTTP) Presorted() bool { return true }

// Fetch requests tag from the console, sorted by the sort in ctx or else by
// h.Sort. A tag the console does not know is an UnknownResourceError; every
// other failure is transient.
func (h *HTTP) Fetch(ctx context.Context, tag string) (*table.Model, error) {
	sort, ok := binding.SortFromContext(ctx)
	if !ok {
		sort = h.Sort
	}
	q := url.Values{}
	if !sort.IsZero() {
		q.Set("sortCol", sort.Column)
		q.Set("sortDir", sort.Dir.String())
	}
	var tr console.TableResponse
	status, err := h.get(ctx, "/api/tables/"+url.PathEscape(tag), q, &tr)
	if status == http.StatusNotFound {
		return nil, &binding.UnknownResourceError{Tag: tag}
	}
	if err != nil {
		return nil, binding.NewTransientFetchError(tag, err)
	}
	m, err := tr.Model()
	if err != nil {
		return nil, binding.NewTransientFetchError(tag, err)
	}
	for _, c := range m.Columns() {
		_ = m.SetComparator(c, NumericComparator)
	}
	return m, nil
}

// NumericComparator orders formatted cells numerically when both parse as
// numbers and as strings otherwise.
var NumericComparator = table.ComparatorFunc(func(a, b any) int {
	as, _ := a.(string)
	bs, _ := b.(string)
	af, aerr := strconv.ParseFloat(as, 64)
	bf, berr := strconv.ParseFloat(bs, 64)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return table.DefaultComparator.Compare(a, b)
})
