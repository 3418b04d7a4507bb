package external

import (
	"context"
	"time"
)

// EPCClient queries the EPC register. Mock implementations use deterministic
// data and a configurable latency to mimic real-world calls.
type EPCClient interface {
	ByUPRN(ctx context.Context, uprn string) (EPCRecord, error)
}

// FloodClient queries the flood-risk service.
type FloodClient interface {
	ByPostcode(ctx context.Context, postcode string) (FloodRisk, error)
}

// PostcodeClient queries the postcode geography service.
type PostcodeClient interface {
	Lookup(ctx context.Context, postcode string) (PostcodeInfo, error)
}

type MockEPCClient struct {
	Latency time.Duration
	Err     error
}

func (c MockEPCClient) ByUPRN(ctx context.Context, uprn string) (EPCRecord, error) {
	if err := sleepOrCancel(ctx, c.Latency); err != nil {
		return EPCRecord{}, err
	}
	if c.Err != nil {
		return EPCRecord{}, c.Err
	}
	score := 40 + checksum(uprn)%60
	return EPCRecord{
		UPRN:            uprn,
		CurrentRating:   ratingFor(score),
		PotentialRating: ratingFor(score + 15),
		EnergyScore:     score,
		InspectionDate:  "2023-05-17",
	}, nil
}

type MockFloodClient struct {
	Latency time.Duration
	Err     error
}

func (c MockFloodClient) ByPostcode(ctx context.Context, postcode string) (FloodRisk, error) {
	if err := sleepOrCancel(ctx, c.Latency); err != nil {
		return FloodRisk{}, err
	}
	if c.Err != nil {
		return FloodRisk{}, c.Err
	}
	levels := []string{"very low", "low", "medium", "high"}
	n := checksum(postcode)
	return FloodRisk{
		Postcode:     postcode,
		RiversAndSea: levels[n%4],
		SurfaceWater: levels[(n/4)%4],
		Reservoir:    "very low",
	}, nil
}

type MockPostcodeClient struct {
	Latency time.Duration
	Err     error
}

func (c MockPostcodeClient) Lookup(ctx context.Context, postcode string) (PostcodeInfo, error) {
	if err := sleepOrCancel(ctx, c.Latency); err != nil {
		return PostcodeInfo{}, err
	}
	if c.Err != nil {
		return PostcodeInfo{}, c.Err
	}
	n := checksum(postcode)
	return PostcodeInfo{
		Postcode:  postcode,
		District:  "Sample District",
		Ward:      "Sample Ward",
		Region:    "Sample Region",
		Latitude:  51.0 + float64(n%500)/100,
		Longitude: -3.0 + float64((n/7)%600)/100,
	}, nil
}

// sleepOrCancel honours context cancellation during the simulated latency so
// the bounded-timeout behaviour of real clients is reproducible in tests.
func sleepOrCancel(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func checksum(s string) int {
	n := 0
	for _, r := range s {
		n = (n*31 + int(r)) % 100003
	}
	return n
}

func ratingFor(score int) string {
	switch {
	case score >= 92:
		return "A"
	case score >= 81:
		return "B"
	case score >= 69:
		return "C"
	case score >= 55:
		return "D"
	case score >= 39:
		return "E"
	case score >= 21:
		return "F"
	default:
		return "G"
	}
}
