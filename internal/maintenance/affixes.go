package maintenance

import (
	"fmt"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/ashgrove/legion/internal/dungeon"
)

// weeklyRotationExpr fires the affix rotation every Monday at 00:00,
// matching the live game's weekly reset.
const weeklyRotationExpr = "0 0 * * 1"

var rotationParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow,
)

// rotation is the fixed weekly affix pool. Tyrannical/Fortified alternate
// and the seasonal affix stays fixed for the season; the pair below
// rotates week-to-week.
var rotation = [][2]dungeon.Affix{
	{dungeon.AffixBolstering, dungeon.AffixSanguine},
	{dungeon.AffixRaging, dungeon.AffixVolcanic},
	{dungeon.AffixNecrotic, dungeon.AffixStorming},
	{dungeon.AffixBursting, dungeon.AffixSpiteful},
	{dungeon.AffixExplosive, dungeon.AffixInspiring},
	{dungeon.AffixGrievous, dungeon.AffixQuaking},
}

// AffixSchedule tracks which week of the rotation is active and flips the
// alternating Tyrannical/Fortified affix each week, alongside the seasonal
// affix configured at construction. The rotation boundary itself is driven
// by a parsed cron.Schedule rather than raw week-count arithmetic, so a
// non-standard reset cadence is just a different expression.
type AffixSchedule struct {
	mu          sync.Mutex
	seasonal    dungeon.Affix
	cronExpr    string
	schedule    cronlib.Schedule
	currentWeek int
	nextRotate  time.Time
	current     []dungeon.Affix
}

// NewAffixSchedule builds a schedule anchored at anchor (the start of week
// 0) with the given seasonal affix active all season, rotating on the
// default weekly-reset cron expression.
func NewAffixSchedule(anchor time.Time, seasonal dungeon.Affix) *AffixSchedule {
	s, err := newAffixScheduleWithExpr(anchor, seasonal, weeklyRotationExpr)
	if err != nil {
		// weeklyRotationExpr is a constant validated by this package's own
		// tests; a parse failure here would be a bug in the literal itself.
		panic(fmt.Sprintf("maintenance: invalid built-in rotation expression: %v", err))
	}
	return s
}

// NewAffixScheduleWithExpr builds a schedule rotating on a caller-supplied
// cron expression instead of the default weekly reset, for servers running
// a non-standard reset cadence. Returns an error if cronExpr doesn't parse.
func NewAffixScheduleWithExpr(anchor time.Time, seasonal dungeon.Affix, cronExpr string) (*AffixSchedule, error) {
	return newAffixScheduleWithExpr(anchor, seasonal, cronExpr)
}

func newAffixScheduleWithExpr(anchor time.Time, seasonal dungeon.Affix, cronExpr string) (*AffixSchedule, error) {
	parsed, err := rotationParser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("maintenance: parse rotation expression %q: %w", cronExpr, err)
	}
	s := &AffixSchedule{
		seasonal: seasonal,
		cronExpr: cronExpr,
		schedule: parsed,
	}
	s.nextRotate = parsed.Next(anchor)
	s.current = s.computeWeek(0)
	return s, nil
}

func (s *AffixSchedule) computeWeek(week int) []dungeon.Affix {
	pair := rotation[week%len(rotation)]
	fortnight := dungeon.AffixTyrannical
	if week%2 == 1 {
		fortnight = dungeon.AffixFortified
	}
	affixes := []dungeon.Affix{fortnight, pair[0], pair[1]}
	if s.seasonal != 0 {
		affixes = append(affixes, s.seasonal)
	}
	return affixes
}

// Current returns the affix set active for the current week.
func (s *AffixSchedule) Current() []dungeon.Affix {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]dungeon.Affix, len(s.current))
	copy(out, s.current)
	return out
}

// NextRotation returns the next time the schedule's cron expression fires.
func (s *AffixSchedule) NextRotation() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRotate
}

// RotateIfDue advances the schedule once now reaches the next scheduled
// cron fire time, returning whether it rotated and the new week index. A
// run that misses several boundaries (e.g. the process was down) still
// only advances one week per call; the maintenance scheduler's own
// interval ensures RotateIfDue is polled often enough that this never
// matters in practice.
func (s *AffixSchedule) RotateIfDue(now time.Time) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Before(s.nextRotate) {
		return false, s.currentWeek
	}
	s.currentWeek++
	s.current = s.computeWeek(s.currentWeek)
	s.nextRotate = s.schedule.Next(now)
	return true, s.currentWeek
}
