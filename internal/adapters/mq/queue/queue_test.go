package queue_test

import (
	"context"
	"testing"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue with capacity 2", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("When it is filled beyond capacity", func() {
			So(q.Enqueue(ctx, queue.Task{URL: "http://a"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Task{URL: "http://b"}), ShouldBeTrue)
			ok := q.Enqueue(ctx, queue.Task{URL: "http://c"})

			Convey("Then the extra task is refused", func() {
				So(ok, ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When it is closed after enqueueing", func() {
			q.Enqueue(ctx, queue.Task{URL: "http://a"})
			q.Enqueue(ctx, queue.Task{URL: "http://b"})
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then queued tasks drain and new ones are refused", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, queue.Task{URL: "http://c"}), ShouldBeFalse)
				var got []string
				for task := range q.Dequeue(ctx) {
					got = append(got, task.URL)
				}
				So(got, ShouldResemble, []string{"http://a", "http://b"})
			})
		})
	})
}
