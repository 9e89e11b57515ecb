package spaced_repetition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flashy/pkg/models"
)

var day = models.NewDate(2024, 3, 10)

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("simple")
	require.NoError(t, err)
	assert.Equal(t, PolicySimple, p.Name())

	p, err = PolicyByName("")
	require.NoError(t, err)
	assert.Equal(t, PolicySimple, p.Name())

	p, err = PolicyByName("graduated")
	require.NoError(t, err)
	assert.Equal(t, PolicyGraduated, p.Name())

	_, err = PolicyByName("sm2")
	assert.Error(t, err)
}

func TestSimplePolicy(t *testing.T) {
	p := SimplePolicy{}
	prev := models.ReviewPlan{Status: models.StatusNew}

	next := p.Next(prev, models.StatusReviewing, day)
	assert.Equal(t, models.StatusReviewing, next.Status)
	require.NotNil(t, next.NextDueDate)
	assert.True(t, next.NextDueDate.Equal(day.AddDays(1)))

	next = p.Next(next, models.StatusLearning, day)
	assert.Equal(t, models.StatusLearning, next.Status)
	assert.Nil(t, next.NextDueDate)
}

func TestGraduatedPolicyWalksIntervals(t *testing.T) {
	p := NewGraduatedPolicy()
	plan := models.ReviewPlan{Status: models.StatusNew}
	asOf := day

	for i, interval := range DefaultIntervals {
		plan = p.Next(plan, models.StatusReviewing, asOf)
		require.Equal(t, models.StatusReviewing, plan.Status, "step %d", i)
		require.NotNil(t, plan.NextDueDate)
		assert.True(t, plan.NextDueDate.Equal(asOf.AddDays(interval)), "step %d", i)
		assert.Equal(t, i+1, plan.ReviewStep)
		asOf = *plan.NextDueDate
	}

	plan = p.Next(plan, models.StatusReviewing, asOf)
	assert.Equal(t, models.StatusMastered, plan.Status)
	assert.Nil(t, plan.NextDueDate)
}

func TestGraduatedPolicyKeepsPendingDueDate(t *testing.T) {
	p := NewGraduatedPolicy()
	plan := p.Next(models.ReviewPlan{Status: models.StatusNew}, models.StatusReviewing, day)
	require.Equal(t, 1, plan.ReviewStep)

	// another correct answer the same day does not consume an interval
	again := p.Next(plan, models.StatusReviewing, day)
	assert.Equal(t, plan, again)
}

func TestGraduatedPolicyLearningKeepsStep(t *testing.T) {
	p := NewGraduatedPolicy()
	plan := models.ReviewPlan{Status: models.StatusReviewing, ReviewStep: 3, NextDueDate: day.Ptr()}

	next := p.Next(plan, models.StatusLearning, day)
	assert.Equal(t, models.StatusLearning, next.Status)
	assert.Nil(t, next.NextDueDate)
	assert.Equal(t, 3, next.ReviewStep)
}

func TestNewGraduatedPolicyCopiesIntervals(t *testing.T) {
	p := NewGraduatedPolicy()
	p.Intervals[0] = 99
	assert.Equal(t, 1, DefaultIntervals[0])
}
