package spdy

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("streamTable", func() {
	var table *streamTable

	BeforeEach(func() {
		table = newStreamTable()
	})

	It("starts empty", func() {
		Expect(table.len()).To(Equal(0))
		_, ok := table.get(1)
		Expect(ok).To(BeFalse())
	})

	It("round-trips an inserted request by stream id", func() {
		req := &Request{streamID: 3}
		table.insert(req)

		got, ok := table.get(3)
		Expect(ok).To(BeTrue())
		Expect(got).To(BeIdenticalTo(req))
		Expect(table.len()).To(Equal(1))
	})

	It("forgets a removed stream id", func() {
		req := &Request{streamID: 5}
		table.insert(req)
		table.remove(5)

		_, ok := table.get(5)
		Expect(ok).To(BeFalse())
		Expect(table.len()).To(Equal(0))
	})

	It("iterates every live request exactly once", func() {
		table.insert(&Request{streamID: 1})
		table.insert(&Request{streamID: 3})
		table.insert(&Request{streamID: 5})

		seen := map[uint32]bool{}
		table.iter(func(req *Request) { seen[req.streamID] = true })

		Expect(seen).To(HaveLen(3))
		Expect(seen).To(HaveKey(uint32(1)))
		Expect(seen).To(HaveKey(uint32(3)))
		Expect(seen).To(HaveKey(uint32(5)))
	})
})

var _ = Describe("Request half-close bookkeeping", func() {
	It("reports unbound until a connection is assigned", func() {
		req := NewRequest("GET", "https://h/", nil)
		Expect(req.bound()).To(BeFalse())

		req.connection = &Connection{}
		Expect(req.bound()).To(BeTrue())
	})

	It("treats Write/End/Close as no-ops once the weak back-reference is cleared", func() {
		req := NewRequest("GET", "https://h/", nil)
		Expect(req.connection).To(BeNil())

		// None of these touch a nil connection; if they did, this
		// would panic rather than silently no-op.
		req.Write([]byte("x"))
		req.End()
		req.Close()
	})
})
