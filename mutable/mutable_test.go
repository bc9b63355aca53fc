package mutable_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/playback/mutable"
)

// mutableMock used to set up test cases for mutators
type mutableMock struct {
	mutable.Context
	value      int
	operations int
	expected   int
}

// AddDelta returns mutation that increments mock value.
func (m *mutableMock) AddDelta(delta int) mutable.Mutation {
	return m.Mutate(func() error {
		m.value += delta
		return nil
	})
}

func TestPutMutations(t *testing.T) {
	tests := []struct {
		description string
		mocks       []*mutableMock
	}{
		{
			description: "single operation",
			mocks: []*mutableMock{
				{Context: mutable.Mutable(), operations: 1, expected: 10},
			},
		},
		{
			description: "multiple operations",
			mocks: []*mutableMock{
				{Context: mutable.Mutable(), operations: 2, expected: 20},
			},
		},
		{
			description: "multiple contexts",
			mocks: []*mutableMock{
				{Context: mutable.Mutable(), operations: 3, expected: 30},
				{Context: mutable.Mutable(), operations: 4, expected: 40},
			},
		},
	}

	for _, test := range tests {
		var mutations mutable.Mutations
		delta := 10
		for _, m := range test.mocks {
			for j := 0; j < m.operations; j++ {
				mutations = mutations.Put(m.AddDelta(delta))
			}
		}
		for _, m := range test.mocks {
			assert.NoError(t, mutations.ApplyTo(m.Context), test.description)
			assert.Equal(t, m.expected, m.value, test.description)
			// mutations are consumed
			assert.NoError(t, mutations.ApplyTo(m.Context), test.description)
			assert.Equal(t, m.expected, m.value, test.description)
		}
		assert.Empty(t, mutations, test.description)
	}
}

func TestApplyError(t *testing.T) {
	errMutation := errors.New("mutation failed")
	m := &mutableMock{Context: mutable.Mutable()}
	var mutations mutable.Mutations
	mutations = mutations.Put(m.AddDelta(1))
	mutations = mutations.Put(m.Mutate(func() error {
		return errMutation
	}))
	mutations = mutations.Put(m.AddDelta(1))

	err := mutations.ApplyTo(m.Context)
	assert.ErrorIs(t, err, errMutation)
	assert.Equal(t, 1, m.value)
}

func TestMutability(t *testing.T) {
	mut := mutable.Immutable()
	assert.False(t, mut.IsMutable())
	mut = mutable.Mutable()
	assert.True(t, mut.IsMutable())
	assert.NotEqual(t, mutable.Mutable(), mutable.Mutable())
	assert.Panics(t, func() {
		mutable.Immutable().Mutate(func() error {
			return nil
		})
	})

	var mutations mutable.Mutations
	assert.Nil(t, mutations.Put(mutable.Mutation{}))
	assert.NoError(t, mutations.ApplyTo(mutable.Mutable()))

	mock := &mutableMock{Context: mutable.Mutable()}
	assert.NoError(t, mock.AddDelta(10).Apply())
	assert.Equal(t, 10, mock.value)
}

func TestMergeMutations(t *testing.T) {
	m1 := &mutableMock{Context: mutable.Mutable()}
	m2 := &mutableMock{Context: mutable.Mutable()}
	var pending, next mutable.Mutations
	pending = pending.Put(m1.Mutate(func() error {
		m1.value = 1
		return nil
	}))
	next = next.Put(m1.Mutate(func() error {
		m1.value *= 10
		return nil
	}))
	next = next.Put(m2.AddDelta(2))

	merged := pending.Merge(next)
	assert.NoError(t, merged.ApplyTo(m1.Context))
	assert.NoError(t, merged.ApplyTo(m2.Context))
	// pending mutators go first
	assert.Equal(t, 10, m1.value)
	assert.Equal(t, 2, m2.value)

	var empty mutable.Mutations
	assert.Nil(t, empty.Merge(nil))
}
