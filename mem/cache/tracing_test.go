package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cachesim/sim/hooking"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Engine hooks", func() {
	var (
		mockCtrl *gomock.Controller
		hook     *MockHook
		e        *Engine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		hook = NewMockHook(mockCtrl)

		var err error
		e, err = MakeBuilder().
			WithBlockSize(32).
			WithCacheByteSize(8192).
			WithWayAssociativity(1).
			WithWritePolicy(WriteBackWriteAllocate).
			Build("L1")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should report the transfers and the access of a dirty eviction", func() {
		_, err := e.Write(0x0)
		Expect(err).NotTo(HaveOccurred())

		e.AcceptHook(hook)

		gomock.InOrder(
			hook.EXPECT().Func(hooking.HookCtx{
				Domain: e,
				Pos:    HookPosTransfer,
				Item: Transfer{
					Seq: 2, Kind: TransferWriteBack, Address: 0x0,
				},
			}),
			hook.EXPECT().Func(hooking.HookCtx{
				Domain: e,
				Pos:    HookPosTransfer,
				Item: Transfer{
					Seq: 2, Kind: TransferBlockRead, Address: 0x2000,
				},
			}),
			hook.EXPECT().Func(hooking.HookCtx{
				Domain: e,
				Pos:    HookPosAccess,
				Item: AccessRecord{
					Seq:            2,
					Kind:           AccessRead,
					Address:        0x2004,
					Tag:            1,
					SetID:          0,
					Outcome:        Miss,
					WayID:          0,
					Evicted:        true,
					EvictedAddress: 0x0,
					WroteBack:      true,
				},
			}),
		)

		_, err = e.Read(0x2004)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should report a write-through miss without a way", func() {
		e, err := MakeBuilder().
			WithWritePolicy(WriteThroughNoAllocate).
			Build("L1")
		Expect(err).NotTo(HaveOccurred())
		e.AcceptHook(hook)

		var records []AccessRecord
		var transfers []Transfer
		hook.EXPECT().Func(gomock.Any()).Do(func(ctx hooking.HookCtx) {
			switch item := ctx.Item.(type) {
			case AccessRecord:
				records = append(records, item)
			case Transfer:
				transfers = append(transfers, item)
			}
		}).Times(2)

		_, err = e.Write(0x1234)
		Expect(err).NotTo(HaveOccurred())

		Expect(transfers).To(ConsistOf(Transfer{
			Seq: 1, Kind: TransferBlockWrite, Address: 0x1220,
		}))
		Expect(records).To(HaveLen(1))
		Expect(records[0].Outcome).To(Equal(Miss))
		Expect(records[0].WayID).To(Equal(-1))
		Expect(records[0].Kind.String()).To(Equal("write"))
	})

	It("should not invoke hooks for rejected accesses", func() {
		e.AcceptHook(hook)

		_, err := e.Read(1 << 33)

		Expect(err).To(HaveOccurred())
	})
})
