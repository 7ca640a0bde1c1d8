package tests

import (
	"time"

	"github.com/Nibir1/Nexus-Marine/internal/queue"
)

func (s *StreamsTestSuite) TestAppendReceiveAck() {
	id, err := s.Queue.Append(s.Ctx, testStream, []byte(`{"orderId":"order-a"}`))
	s.Require().NoError(err)
	s.Require().NotEmpty(id)

	msgs, err := s.Queue.Receive(s.Ctx, testStream, 10, 100*time.Millisecond)
	s.Require().NoError(err)
	s.Require().Len(msgs, 1)
	s.Require().Equal(id, msgs[0].ID)
	s.Require().JSONEq(`{"orderId":"order-a"}`, string(msgs[0].Body))
	s.Require().EqualValues(1, msgs[0].DeliveryCount)

	s.Require().NoError(s.Queue.Ack(s.Ctx, testStream, id))

	// Acked messages never come back, even after the visibility window.
	time.Sleep(2 * testVisibility)

	msgs, err = s.Queue.Receive(s.Ctx, testStream, 10, 100*time.Millisecond)
	s.Require().NoError(err)
	s.Require().Empty(msgs)
}

func (s *StreamsTestSuite) TestUnackedMessageIsRedelivered() {
	id, err := s.Queue.Append(s.Ctx, testStream, []byte(`{"orderId":"order-b"}`))
	s.Require().NoError(err)

	msgs, err := s.Queue.Receive(s.Ctx, testStream, 10, 100*time.Millisecond)
	s.Require().NoError(err)
	s.Require().Len(msgs, 1)

	// Not acked: invisible until the window expires, then handed out again.
	msgs, err = s.Queue.Receive(s.Ctx, testStream, 10, 50*time.Millisecond)
	s.Require().NoError(err)
	s.Require().Empty(msgs, "pending message stays invisible inside the window")

	time.Sleep(2 * testVisibility)

	msgs, err = s.Queue.Receive(s.Ctx, testStream, 10, 100*time.Millisecond)
	s.Require().NoError(err)
	s.Require().Len(msgs, 1)
	s.Require().Equal(id, msgs[0].ID)
	s.Require().Greater(msgs[0].DeliveryCount, int64(1))
}

func (s *StreamsTestSuite) TestSelectiveAck() {
	idA, err := s.Queue.Append(s.Ctx, testStream, []byte(`{"orderId":"order-a"}`))
	s.Require().NoError(err)
	idB, err := s.Queue.Append(s.Ctx, testStream, []byte(`{"orderId":"order-b"}`))
	s.Require().NoError(err)

	msgs, err := s.Queue.Receive(s.Ctx, testStream, 10, 100*time.Millisecond)
	s.Require().NoError(err)
	s.Require().Len(msgs, 2)

	// Ack only the first; the second must come back alone.
	s.Require().NoError(s.Queue.Ack(s.Ctx, testStream, idA))

	time.Sleep(2 * testVisibility)

	msgs, err = s.Queue.Receive(s.Ctx, testStream, 10, 100*time.Millisecond)
	s.Require().NoError(err)
	s.Require().Len(msgs, 1)
	s.Require().Equal(idB, msgs[0].ID)
}

func (s *StreamsTestSuite) TestPoisonMessageMovesToDeadLetter() {
	id, err := s.Queue.Append(s.Ctx, testStream, []byte(`{"orderId":"poison"}`))
	s.Require().NoError(err)

	// Receive without acking until the delivery budget runs out.
	seen := 0
	s.Require().Eventually(func() bool {
		msgs, err := s.Queue.Receive(s.Ctx, testStream, 10, 50*time.Millisecond)
		s.Require().NoError(err)

		for _, m := range msgs {
			if m.ID == id {
				seen++
			}
		}

		dead, err := s.Redis.XLen(s.Ctx, queue.DeadLetterStream(testStream)).Result()
		s.Require().NoError(err)
		return dead == 1
	}, 10*time.Second, testVisibility)

	s.Require().GreaterOrEqual(seen, 1)

	// Dead-lettered messages leave the live queue for good.
	time.Sleep(2 * testVisibility)

	msgs, err := s.Queue.Receive(s.Ctx, testStream, 10, 50*time.Millisecond)
	s.Require().NoError(err)
	s.Require().Empty(msgs)
}
