package tests

import (
	"time"

	"github.com/Nibir1/Nexus-Marine/internal/apperr"
	"github.com/Nibir1/Nexus-Marine/internal/domain"
)

func (s *IntegrationTestSuite) TestCreateOrder_Success() {
	order := s.createOrder("SS-Neptune", "PROP-881", 2)

	rowQuery := `
		SELECT ship_id, part_id, quantity
		FROM orders
		WHERE order_id = $1
	`

	var shipID, partID string
	var quantity int
	err := s.DbPool.QueryRow(s.Ctx, rowQuery, order.OrderID).
		Scan(&shipID, &partID, &quantity)
	s.Require().NoError(err)
	s.Require().Equal("SS-Neptune", shipID)
	s.Require().Equal("PROP-881", partID)
	s.Require().Equal(2, quantity)

	outboxQuery := `
		SELECT id
		FROM outbox
		WHERE event_id IS NOT NULL AND detail->>'orderId' = $1
	`

	var outboxID int64
	err = s.DbPool.QueryRow(s.Ctx, outboxQuery, order.OrderID).Scan(&outboxID)
	s.Require().NoError(err)

	publishedAtQuery := `
		SELECT published_at
		FROM outbox
		WHERE id = $1
	`

	s.Require().Eventually(func() bool {
		var publishedAt *time.Time

		err := s.DbPool.QueryRow(s.Ctx, publishedAtQuery, outboxID).
			Scan(&publishedAt)

		return err == nil && publishedAt != nil
	}, 5*time.Second, 100*time.Millisecond, "relay should publish the outbox row")
}

func (s *IntegrationTestSuite) TestCreateOrder_OutboxRowCarriesRoutingTags() {
	order := s.createOrder("SS-Poseidon", "VALVE-104", 1)

	query := `
		SELECT source, detail_type, bus_name
		FROM outbox
		WHERE detail->>'orderId' = $1
	`

	var source, detailType, busName string
	err := s.DbPool.QueryRow(s.Ctx, query, order.OrderID).
		Scan(&source, &detailType, &busName)
	s.Require().NoError(err)
	s.Require().Equal(domain.SourceOrders, source)
	s.Require().Equal(domain.DetailTypeOrderCreated, detailType)
	s.Require().Equal(testBusName, busName)
}

func (s *IntegrationTestSuite) TestCreateOrder_ValidationLeavesNoRows() {
	_, err := s.OrderService.CreateOrder(s.Ctx, []byte(`{"shipId":"SS-Neptune","partId":"PROP-881","quantity":0}`))
	s.Require().Error(err)
	s.Require().True(apperr.IsValidation(err))

	var count int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM orders`).Scan(&count))
	s.Require().Zero(count)

	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM outbox`).Scan(&count))
	s.Require().Zero(count)
}
