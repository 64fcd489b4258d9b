package tracing

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/mem/vm/trace"
)

var _ = Describe("JSONTracer", func() {
	It("should write tasks as a JSON array", func() {
		unit := newUnit()
		buf := new(bytes.Buffer)
		t := NewJSONTracer(unit, buf)
		CollectTrace(unit, t)

		applyAll(unit,
			trace.NewCmd(1, 4096),
			trace.NewCmd(2, 4096),
			trace.DeleteCmd(5),
		)
		t.Finish()
		t.Finish()

		var tasks []Task
		Expect(json.Unmarshal(buf.Bytes(), &tasks)).To(Succeed())
		Expect(tasks).To(HaveLen(3))

		Expect(tasks[1].Detail).To(Equal("new(2, 4096)"))
		Expect(tasks[1].StartTime).To(Equal(uint64(0)))
		Expect(tasks[1].EndTime).To(Equal(uint64(5)))
		Expect(tasks[1].Steps).To(HaveLen(2))
		Expect(tasks[1].Steps[0].What).To(Equal("Evict"))
		Expect(tasks[2].Err).To(ContainSubstring("unknown pointer"))
	})

	It("should write an empty array when nothing ran", func() {
		buf := new(bytes.Buffer)
		t := NewJSONTracer(newUnit(), buf)
		t.Finish()

		var tasks []Task
		Expect(json.Unmarshal(buf.Bytes(), &tasks)).To(Succeed())
		Expect(tasks).To(BeEmpty())
	})
})
