package climate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/acis-toolkit/internal/acis"
)

// ErrNoStations is returned for a job or query without stations.
var ErrNoStations = errors.New("no stations given")

// Service orchestrates ACIS requests, result normalization and the
// snapshot store.
type Service struct {
	store  Store
	client Client
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewService creates a new Service.
func NewService(store Store, client Client, logger logrus.FieldLogger) *Service {
	return &Service{
		store:  store,
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// FetchAndStore fetches the job's stations for its lookback window ending
// today, normalizes the result, and stores a snapshot. A failed fetch
// keeps the last good snapshot.
func (s *Service) FetchAndStore(ctx context.Context, job Job) error {
	log := s.logger.WithFields(logrus.Fields{"job": job.Name, "site_count": len(job.Sids)})
	now := s.now().UTC()
	sdate, edate := job.Window(now)

	var (
		result *acis.Result
		err    error
	)
	switch len(job.Sids) {
	case 0:
		return fmt.Errorf("job %s: %w", job.Name, ErrNoStations)
	case 1:
		result, err = s.StationData(ctx, StationQuery{
			Sid:      job.Sids[0],
			SDate:    sdate,
			EDate:    edate,
			Elems:    job.Elems,
			Interval: job.Interval,
		})
	default:
		result, err = s.MultiStationData(ctx, MultiStationQuery{
			Sids:     job.Sids,
			SDate:    sdate,
			EDate:    edate,
			Elems:    job.Elems,
			Interval: job.Interval,
		})
	}
	if err != nil {
		log.WithError(err).Error("fetch failed; keeping last good snapshot if any")
		return fmt.Errorf("job %s: %w", job.Name, err)
	}

	snapshot := NewSnapshot(job, sdate, edate, result, now)
	s.store.SaveSnapshot(job.Key(), snapshot)
	log.WithField("records", len(snapshot.Records)).Info("snapshot stored")
	return nil
}

// StationData runs a StnData request for one station.
func (s *Service) StationData(ctx context.Context, q StationQuery) (*acis.Result, error) {
	if q.Sid == "" {
		return nil, ErrNoStations
	}
	req := acis.NewStnDataRequest(s.client)
	if err := req.Location(map[string]any{"sid": q.Sid}); err != nil {
		return nil, err
	}
	if err := configure(req, q.SDate, q.EDate, q.Elems, q.Interval); err != nil {
		return nil, err
	}
	req.Metadata("name", "state", "ll", "elev", "sids")
	return req.Result(ctx)
}

// MultiStationData runs a MultiStnData request for several stations.
func (s *Service) MultiStationData(ctx context.Context, q MultiStationQuery) (*acis.Result, error) {
	if len(q.Sids) == 0 {
		return nil, ErrNoStations
	}
	req := acis.NewMultiStnDataRequest(s.client)
	if err := req.Location(map[string]any{"sids": q.Sids}); err != nil {
		return nil, err
	}
	sdate := q.SDate
	if sdate == "" {
		sdate = q.Date
	}
	if err := configure(req, sdate, q.EDate, q.Elems, q.Interval); err != nil {
		return nil, err
	}
	req.Metadata("name", "state", "ll", "elev")
	return req.Result(ctx)
}

func configure(req *acis.Request, sdate, edate string, elems []string, interval string) error {
	var err error
	if edate == "" {
		err = req.Date(sdate)
	} else {
		err = req.Dates(sdate, edate)
	}
	if err != nil {
		return err
	}
	for _, el := range elems {
		if err := req.AddElement(el, nil); err != nil {
			return err
		}
	}
	if interval != "" {
		return req.Interval(interval)
	}
	return nil
}

// StreamStation streams CSV StnData for one station and collects the
// records.
func (s *Service) StreamStation(ctx context.Context, q StationQuery) (StreamedData, error) {
	stream := acis.NewStnDataStream(s.client)
	if err := stream.Location(map[string]any{"sid": q.Sid}); err != nil {
		return StreamedData{}, err
	}
	var err error
	if q.EDate == "" {
		err = stream.Date(q.SDate)
	} else {
		err = stream.Dates(q.SDate, q.EDate)
	}
	if err != nil {
		return StreamedData{}, err
	}
	return s.drain(ctx, stream, q.Elems, q.Interval)
}

// StreamMulti streams CSV MultiStnData for several stations on one date.
func (s *Service) StreamMulti(ctx context.Context, q MultiStationQuery) (StreamedData, error) {
	if len(q.Sids) == 0 {
		return StreamedData{}, ErrNoStations
	}
	stream := acis.NewMultiStnDataStream(s.client)
	if err := stream.Location(map[string]any{"sids": q.Sids}); err != nil {
		return StreamedData{}, err
	}
	if err := stream.Date(q.Date); err != nil {
		return StreamedData{}, err
	}
	return s.drain(ctx, stream, q.Elems, q.Interval)
}

func (s *Service) drain(ctx context.Context, stream *acis.Stream, elems []string, interval string) (StreamedData, error) {
	for _, el := range elems {
		if err := stream.AddElement(el, nil); err != nil {
			return StreamedData{}, err
		}
	}
	if interval != "" {
		if err := stream.Interval(interval); err != nil {
			return StreamedData{}, err
		}
	}

	out := StreamedData{
		Kind:    stream.Kind().String(),
		Elems:   stream.Elems(),
		Records: []acis.Record{},
	}
	for rec, err := range stream.Records(ctx) {
		if err != nil {
			return StreamedData{}, err
		}
		out.Records = append(out.Records, rec)
	}
	out.Meta = stream.Meta()
	s.logger.WithFields(logrus.Fields{
		"kind":    out.Kind,
		"records": len(out.Records),
	}).Debug("stream drained")
	return out, nil
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(job string) (Snapshot, error) {
	return s.store.GetLatest(job)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(job string, from, to time.Time) ([]Snapshot, error) {
	return s.store.GetRange(job, from, to)
}
