package tests

import (
	"github.com/Nibir1/Nexus-Marine/internal/domain"
	"github.com/Nibir1/Nexus-Marine/internal/telemetry"
)

func reading(shipID, timestamp string, temperature float64) telemetry.Reading {
	return telemetry.Reading{
		ShipID:      shipID,
		Timestamp:   timestamp,
		Temperature: temperature,
		FuelLevel:   74.5,
		Latitude:    53.55,
		Longitude:   9.99,
		Status:      domain.StatusNormal,
	}
}

func (s *StoreTestSuite) TestPutAndReadBack() {
	r := reading("SS-Neptune", "2026-03-01T10:00:00.000Z", 88.2)
	s.Require().NoError(s.Store.Put(s.Ctx, r))

	got, err := s.Store.LatestReadings(s.Ctx, "SS-Neptune", 10)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Require().Equal(r, got[0])
}

func (s *StoreTestSuite) TestLatestReadingsOrderedNewestFirst() {
	timestamps := []string{
		"2026-03-01T10:00:00.000Z",
		"2026-03-01T10:05:00.000Z",
		"2026-03-01T10:10:00.000Z",
	}
	for i, ts := range timestamps {
		s.Require().NoError(s.Store.Put(s.Ctx, reading("SS-Neptune", ts, 80+float64(i))))
	}

	got, err := s.Store.LatestReadings(s.Ctx, "SS-Neptune", 2)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Require().Equal("2026-03-01T10:10:00.000Z", got[0].Timestamp)
	s.Require().Equal("2026-03-01T10:05:00.000Z", got[1].Timestamp)
}

func (s *StoreTestSuite) TestSameKeyOverwrites() {
	ts := "2026-03-01T10:00:00.000Z"
	s.Require().NoError(s.Store.Put(s.Ctx, reading("SS-Neptune", ts, 88.2)))
	s.Require().NoError(s.Store.Put(s.Ctx, reading("SS-Neptune", ts, 91.7)))

	got, err := s.Store.LatestReadings(s.Ctx, "SS-Neptune", 10)
	s.Require().NoError(err)
	s.Require().Len(got, 1, "same (shipId, timestamp) is one reading")
	s.Require().InDelta(91.7, got[0].Temperature, 0.001)
}

func (s *StoreTestSuite) TestReadingsAreScopedByShip() {
	s.Require().NoError(s.Store.Put(s.Ctx, reading("SS-Neptune", "2026-03-01T10:00:00.000Z", 88.2)))
	s.Require().NoError(s.Store.Put(s.Ctx, reading("SS-Poseidon", "2026-03-01T10:01:00.000Z", 79.0)))

	got, err := s.Store.LatestReadings(s.Ctx, "SS-Neptune", 10)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Require().Equal("SS-Neptune", got[0].ShipID)
}

func (s *StoreTestSuite) TestUnknownShipReturnsEmpty() {
	got, err := s.Store.LatestReadings(s.Ctx, "SS-Ghost", 10)
	s.Require().NoError(err)
	s.Require().Empty(got)
}
