package model

// StepKind 单步更新的类型
type StepKind int32

const (
	StepEnter   StepKind = iota + 1 // 出基地落到起点
	StepForward                     // 前进一格
	StepEvict                       // 被吃后倒退一格
	StepBase                        // 回到基地
)

func (k StepKind) String() string {
	switch k {
	case StepEnter:
		return "enter"
	case StepForward:
		return "forward"
	case StepEvict:
		return "evict"
	case StepBase:
		return "base"
	default:
		return "unknown"
	}
}

// Step 一次可观察的棋子更新, 渲染层据此播放动画
type Step struct {
	Kind   StepKind
	Player PlayerID
	Index  int32
	Pos    int32
	Travel int32
}

func stepOf(kind StepKind, p *Piece) Step {
	return Step{Kind: kind, Player: p.player, Index: p.index, Pos: p.pos, Travel: p.travel}
}
