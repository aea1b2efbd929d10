package mactable_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ethsim/switching/mactable"
)

var _ = Describe("WrapPolicy", func() {
	It("should walk the slots in circular order", func() {
		policy := mactable.NewWrapPolicy()
		slots := make([]mactable.Entry, 3)

		Expect(policy.SelectVictim(slots, 0x01)).To(Equal(0))
		Expect(policy.SelectVictim(slots, 0x02)).To(Equal(1))
		Expect(policy.SelectVictim(slots, 0x03)).To(Equal(2))
		Expect(policy.SelectVictim(slots, 0x04)).To(Equal(0))
	})

	It("should not depend on the address", func() {
		policy := mactable.NewWrapPolicy()
		slots := make([]mactable.Entry, 2)

		Expect(policy.SelectVictim(slots, 0xaa)).To(Equal(0))
		Expect(policy.SelectVictim(slots, 0xaa)).To(Equal(1))
	})
})

var _ = Describe("OldestPolicy", func() {
	It("should select the entry with the smallest age marker", func() {
		policy := mactable.NewOldestPolicy(1)
		slots := []mactable.Entry{
			{Valid: true, LearnSeq: 5},
			{Valid: true, LearnSeq: 2},
			{Valid: true, LearnSeq: 9},
		}

		Expect(policy.SelectVictim(slots, 0x01)).To(Equal(1))
	})

	It("should only consider candidates in the hashed bucket", func() {
		policy := mactable.NewOldestPolicy(2)
		slots := []mactable.Entry{
			{Valid: true, LearnSeq: 1},
			{Valid: true, LearnSeq: 2},
			{Valid: true, LearnSeq: 3},
			{Valid: true, LearnSeq: 4},
		}

		victim := policy.SelectVictim(slots, 0x01)
		bucket := victim % 2

		// Oldest within the bucket: slot 0 for bucket 0, slot 1 for bucket 1.
		Expect(victim).To(Equal(bucket))
	})

	It("should panic on a non-positive bucket count", func() {
		Expect(func() { mactable.NewOldestPolicy(0) }).To(Panic())
	})
})
