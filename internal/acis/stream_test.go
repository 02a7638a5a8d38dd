package acis

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackedBody struct {
	io.Reader
	closed int
}

func (b *trackedBody) Close() error {
	b.closed++
	return nil
}

type fakeStreamCaller struct {
	body   *trackedBody
	err    error
	call   string
	params Params

	// onSubmit runs while the call is in flight.
	onSubmit func()
}

func (f *fakeStreamCaller) SubmitStream(_ context.Context, call string, params Params) (io.ReadCloser, error) {
	f.call = call
	f.params = params
	if f.onSubmit != nil {
		f.onSubmit()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func newFakeStream(body string) *fakeStreamCaller {
	return &fakeStreamCaller{body: &trackedBody{Reader: strings.NewReader(body)}}
}

// onceReader fails the test if it is read after the first chunk.
type onceReader struct {
	t     *testing.T
	chunk string
	done  bool
}

func (r *onceReader) Read(p []byte) (int, error) {
	if r.done {
		r.t.Fatal("stream read past the error line")
	}
	r.done = true
	return copy(p, r.chunk), nil
}

func drain(t *testing.T, s *Stream) ([]Record, error) {
	t.Helper()
	var recs []Record
	for rec, err := range s.Records(context.Background()) {
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func TestStnDataStream(t *testing.T) {
	fake := newFakeStream("OKLAHOMA CITY WILL ROGERS WORLD AP\n2011-12-31,26,57\n2012-01-01,30,72\n")
	s := NewStnDataStream(fake)
	require.NoError(t, s.Dates("2011-12-31", "2012-01-01"))
	require.NoError(t, s.Location(map[string]any{"sid": "okc"}))
	require.NoError(t, s.AddElement("mint", nil))
	require.NoError(t, s.AddElement(1, nil))

	recs, err := drain(t, s)
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{Site: "okc", Date: "2011-12-31", Values: []any{"26", "57"}},
		{Site: "okc", Date: "2012-01-01", Values: []any{"30", "72"}},
	}, recs)
	assert.Equal(t, map[SiteID]map[string]any{"okc": {"name": "OKLAHOMA CITY WILL ROGERS WORLD AP"}}, s.Meta())
	assert.Equal(t, Closed, s.State())
	assert.Equal(t, 1, fake.body.closed)

	assert.Equal(t, "StnData", fake.call)
	assert.Equal(t, "csv", fake.params["output"])
	assert.Equal(t, []any{
		map[string]any{"name": "mint", "interval": "dly"},
		map[string]any{"vX": 1, "interval": "dly"},
	}, fake.params["elems"])
}

func TestMultiStnDataStream(t *testing.T) {
	body := "okc,OKLAHOMA CITY,OK,-97.6,35.39,1285.0,26,57\n" +
		"OKCthr,Oklahoma City Area,OK,,,,25,58\n" +
		"\n"
	fake := newFakeStream(body)
	s := NewMultiStnDataStream(fake)
	require.NoError(t, s.Date("2011-12-31"))
	require.NoError(t, s.Location(map[string]any{"sids": []string{"okc", "OKCthr"}}))
	require.NoError(t, s.AddElement("mint", nil))
	require.NoError(t, s.AddElement(1, nil))
	require.NoError(t, s.Interval("mly"))

	recs, err := drain(t, s)
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{Site: "okc", Date: "2011-12-31", Values: []any{"26", "57"}},
		{Site: "OKCthr", Date: "2011-12-31", Values: []any{"25", "58"}},
	}, recs)
	assert.Equal(t, map[SiteID]map[string]any{
		"okc":    {"name": "OKLAHOMA CITY", "state": "OK", "elev": 1285.0, "ll": []float64{-97.6, 35.39}},
		"OKCthr": {"name": "Oklahoma City Area", "state": "OK"},
	}, s.Meta())
	assert.Equal(t, "okc,OKCthr", fake.params["sids"])
	assert.Equal(t, "MultiStnData", fake.call)
	assert.Equal(t, 1, fake.body.closed)

	elems := fake.params["elems"].([]any)
	assert.Equal(t, "mly", elems[0].(map[string]any)["interval"])
}

func TestStreamErrorSentinel(t *testing.T) {
	body := &trackedBody{Reader: &onceReader{t: t, chunk: "error: bad parameter\n"}}
	fake := &fakeStreamCaller{body: body}
	s := NewStnDataStream(fake)
	require.NoError(t, s.Location(map[string]any{"sid": "okc"}))
	require.NoError(t, s.Date("2011-12-31"))
	require.NoError(t, s.AddElement("maxt", nil))

	recs, err := drain(t, s)
	assert.Empty(t, recs)
	var rerr *RequestError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "bad parameter", rerr.Message)
	assert.Equal(t, 1, body.closed)
	assert.Equal(t, Closed, s.State())
}

func TestStreamSinglePass(t *testing.T) {
	fake := newFakeStream("NAME\n2011-12-31,1\n")
	s := NewStnDataStream(fake)
	require.NoError(t, s.Location(map[string]any{"uid": 17, "sid": "okc"}))
	require.NoError(t, s.Date("2011-12-31"))
	require.NoError(t, s.AddElement("maxt", nil))

	_, err := drain(t, s)
	require.NoError(t, err)
	assert.Equal(t, "17", fake.params["uid"])
	assert.NotContains(t, fake.params, "sid")

	_, err = drain(t, s)
	assert.ErrorIs(t, err, ErrStreamConsumed)
}

func TestStreamStateTransitions(t *testing.T) {
	fake := newFakeStream("NAME\n2011-12-30,1\n2011-12-31,2\n")
	s := NewStnDataStream(fake)
	require.NoError(t, s.Location(map[string]any{"sid": "okc"}))
	require.NoError(t, s.Dates("2011-12-30", "2011-12-31"))
	require.NoError(t, s.AddElement("maxt", nil))
	assert.Equal(t, NotConnected, s.State())

	var during StreamState = -1
	fake.onSubmit = func() { during = s.State() }

	var seen []StreamState
	for _, err := range s.Records(context.Background()) {
		require.NoError(t, err)
		seen = append(seen, s.State())
	}
	assert.Equal(t, NotConnected, during)
	assert.Equal(t, []StreamState{Streaming, Streaming}, seen)
	assert.Equal(t, Closed, s.State())
}

func TestStreamStateAfterFailedCall(t *testing.T) {
	fake := &fakeStreamCaller{err: errors.New("connection refused")}
	s := NewMultiStnDataStream(fake)
	require.NoError(t, s.Location(map[string]any{"sids": "okc"}))
	require.NoError(t, s.Date("2011-12-31"))
	require.NoError(t, s.AddElement("maxt", nil))

	_, err := drain(t, s)
	require.Error(t, err)
	assert.Equal(t, Closed, s.State())

	_, err = drain(t, s)
	assert.ErrorIs(t, err, ErrStreamConsumed)
}

func TestStreamEarlyBreakCloses(t *testing.T) {
	fake := newFakeStream("NAME\n2011-12-30,1\n2011-12-31,2\n")
	s := NewStnDataStream(fake)
	require.NoError(t, s.Location(map[string]any{"sid": "okc"}))
	require.NoError(t, s.Dates("2011-12-30", "2011-12-31"))
	require.NoError(t, s.AddElement("maxt", nil))

	for rec, err := range s.Records(context.Background()) {
		require.NoError(t, err)
		assert.Equal(t, "2011-12-30", rec.Date)
		break
	}
	assert.Equal(t, 1, fake.body.closed)
	assert.Equal(t, Closed, s.State())
}

func TestStreamCancelledContext(t *testing.T) {
	fake := newFakeStream("NAME\n2011-12-30,1\n")
	s := NewStnDataStream(fake)
	require.NoError(t, s.Location(map[string]any{"sid": "okc"}))
	require.NoError(t, s.Date("2011-12-30"))
	require.NoError(t, s.AddElement("maxt", nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var got error
	for _, err := range s.Records(ctx) {
		got = err
	}
	assert.ErrorIs(t, got, context.Canceled)
	assert.Equal(t, 1, fake.body.closed)
}

func TestStreamTransportError(t *testing.T) {
	fake := &fakeStreamCaller{err: &RequestError{StatusCode: 400, Message: "bad"}}
	s := NewStnDataStream(fake)
	require.NoError(t, s.Location(map[string]any{"sid": "okc"}))
	require.NoError(t, s.Date("2011-12-30"))
	require.NoError(t, s.AddElement("maxt", nil))

	_, err := drain(t, s)
	var rerr *RequestError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, 400, rerr.StatusCode)
}

func TestStreamConfiguration(t *testing.T) {
	s := NewStnDataStream(newFakeStream(""))
	assert.Empty(t, s.Elems())
	require.NoError(t, s.AddElement("maxt", nil))
	require.NoError(t, s.AddElement(2, nil))
	assert.Equal(t, []string{"maxt", "vx2"}, s.Elems())
	require.NoError(t, s.AddElement("maxt", nil))
	assert.Equal(t, []string{"maxt1", "vx2", "maxt0"}, s.Elems())
	s.DelElement("maxt")
	assert.Equal(t, []string{"vx2"}, s.Elems())
	s.ClearElements()
	assert.Empty(t, s.Elems())

	for _, iv := range []any{"dly", "mly", "yly", []int{0, 1, 0}, [3]int{1, 0, 0}} {
		assert.NoError(t, s.Interval(iv))
	}
	var ierr *InvalidIntervalError
	assert.True(t, errors.As(s.Interval("hly"), &ierr))

	var perr *ParameterError
	assert.True(t, errors.As(s.Location(map[string]any{"county": "40109"}), &perr))
	assert.True(t, errors.As(s.Dates("2011-1-1", "2012"), &perr))

	m := NewMultiStnDataStream(newFakeStream(""))
	assert.True(t, errors.As(m.Dates("2011", "2012"), &perr))
	assert.True(t, errors.As(m.Date("por"), &perr))
	assert.True(t, errors.As(m.Location(map[string]any{"sid": "okc"}), &perr))
}

func TestStreamValidation(t *testing.T) {
	s := NewStnDataStream(newFakeStream(""))
	_, err := drain(t, s)
	var perr *ParameterError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, NotConnected, s.State())

	require.NoError(t, s.Location(map[string]any{"sid": "okc"}))
	_, err = drain(t, s)
	var merr *MissingDateError
	assert.True(t, errors.As(err, &merr))
}
