package cache_test

import (
	"fmt"
	"testing"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/cache"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLRU(t *testing.T) {
	Convey("Given a cache with capacity 3", t, func() {
		c := cache.New[string, int](3)
		for i := 1; i <= 3; i++ {
			c.Add(fmt.Sprintf("k%d", i), i)
		}

		Convey("When a fourth key is added", func() {
			evicted := c.Add("k4", 4)

			Convey("Then exactly the least recently used key is evicted", func() {
				So(evicted, ShouldBeTrue)
				So(c.Len(), ShouldEqual, 3)
				_, ok := c.Peek("k1")
				So(ok, ShouldBeFalse)
				So(c.Keys(), ShouldResemble, []string{"k2", "k3", "k4"})
			})
		})

		Convey("When the oldest key is read before inserting", func() {
			v, ok := c.Get("k1")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 1)
			c.Add("k4", 4)

			Convey("Then it is promoted and the next oldest is evicted", func() {
				_, ok := c.Peek("k1")
				So(ok, ShouldBeTrue)
				_, ok = c.Peek("k2")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the oldest key is only peeked", func() {
			c.Peek("k1")
			c.Add("k4", 4)

			Convey("Then it is not promoted", func() {
				_, ok := c.Peek("k1")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("Snapshot copies every entry", func() {
			So(c.Snapshot(), ShouldResemble, map[string]int{"k1": 1, "k2": 2, "k3": 3})
			So(c.Cap(), ShouldEqual, 3)
		})
	})

	Convey("A non-positive capacity falls back to the default", t, func() {
		So(cache.New[string, bool](0).Cap(), ShouldEqual, cache.DefaultSize)
	})
}
