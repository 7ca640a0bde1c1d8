package tests

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/Nibir1/Nexus-Marine/internal/telemetry"
	"github.com/Nibir1/Nexus-Marine/internal/testsuite"
)

type StoreTestSuite struct {
	testsuite.BaseSuite

	Store telemetry.Store
}

func (s *StoreTestSuite) SetupSuite() {
	s.BaseSuite.SetupRedis()
}

func (s *StoreTestSuite) TearDownSuite() {
	s.BaseSuite.TearDownInfrastructure()
}

func (s *StoreTestSuite) SetupTest() {
	s.BaseSuite.FlushRedis()
	s.Store = telemetry.NewRedisStore(s.Redis, zap.NewNop())
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
