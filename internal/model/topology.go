/*
Board 棋盘拓扑

- 公共环路 52 格, 编号 1..52, 基地为 0
- 每个玩家 4 颗棋子, 掷出 6 才能出基地, 出基地落在自己的起点 (travel=1)

| 玩家 | 起点 startingPoint | 拐点 turningPoint | 终点路径 victoryStart | 终点格 |
| --  | ----              | ----             | -------              | ----  |
| 1   | 1                 | 52               | 111                  | 116   |
| 2   | 14                | 13               | 221                  | 226   |
| 3   | 27                | 26               | 331                  | 336   |
| 4   | 40                | 39               | 441                  | 446   |

- 拐点: travel 达到 52 时本应到达的环路格, 此时改为进入自己的终点路径
- 终点路径 6 格 (travel 52..57), travel=57 即到达终点
- 安全点 1 14 27 40, 星点 9 22 35 48, 落在这些格子不会被吃
- 各玩家终点路径编号互不重叠, 所以 pos>52 且 pos<victoryStart 表示越过 52 需要回到 1
*/

package model

import "fmt"

// PlayerID 玩家编号 1..4
type PlayerID int32

const (
	Player1 PlayerID = iota + 1
	Player2
	Player3
	Player4
)

const (
	PlayerCount          = 4  // 玩家数量
	PiecesPerPlayer      = 4  // 每个玩家的棋子数
	LoopLength     int32 = 52 // 公共路径长度
	HomePathLen    int32 = 6  // 终点路径长度
	BasePos        int32 = 0  // 基地
	FinishTravel   int32 = 57 // 走完全程的步数
	EnterDice      int32 = 6  // 出基地需要的点数
	MaxDice        int32 = 6
	MinDice        int32 = 1
)

// Valid 是否合法的玩家编号
func (p PlayerID) Valid() bool { return p >= Player1 && p <= Player4 }

// Next 下一个玩家, 4 之后回到 1
func (p PlayerID) Next() PlayerID { return p%PlayerCount + 1 }

func (p PlayerID) String() string { return fmt.Sprintf("P%d", int32(p)) }

// Topology 棋盘拓扑, 对局期间不可变
type Topology struct {
	startingPoints [PlayerCount]int32
	turningPoints  [PlayerCount]int32
	victoryStart   [PlayerCount]int32
	immune         map[int32]struct{}
	safeSpots      []int32
	starSpots      []int32
}

var defaultTopology = mustTopology(
	[PlayerCount]int32{1, 14, 27, 40},
	[PlayerCount]int32{52, 13, 26, 39},
	[PlayerCount]int32{111, 221, 331, 441},
	[]int32{1, 14, 27, 40},
	[]int32{9, 22, 35, 48},
)

// DefaultTopology 标准四人棋盘
func DefaultTopology() *Topology { return defaultTopology }

// NewTopology 自定义拓扑, 参数不合法时返回错误
func NewTopology(starting, turning, victory [PlayerCount]int32, safe, star []int32) (*Topology, error) {
	t := &Topology{
		startingPoints: starting,
		turningPoints:  turning,
		victoryStart:   victory,
		immune:         make(map[int32]struct{}, len(safe)+len(star)),
		safeSpots:      append([]int32(nil), safe...),
		starSpots:      append([]int32(nil), star...),
	}
	for _, pos := range safe {
		t.immune[pos] = struct{}{}
	}
	for _, pos := range star {
		t.immune[pos] = struct{}{}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func mustTopology(starting, turning, victory [PlayerCount]int32, safe, star []int32) *Topology {
	t, err := NewTopology(starting, turning, victory, safe, star)
	if err != nil {
		panic(err)
	}
	return t
}

// Validate 校验拓扑: 起点/拐点在环路上, 终点路径在 52 之后且互不重叠
func (t *Topology) Validate() error {
	for i := 0; i < PlayerCount; i++ {
		if !isLoopCell(t.startingPoints[i]) || !isLoopCell(t.turningPoints[i]) {
			return fmt.Errorf("player %d: starting/turning point off the loop", i+1)
		}
		// 拐点必须是从起点出发第 52 步到达的格子
		if want := loopCellAfter(t.startingPoints[i], LoopLength-1); want != t.turningPoints[i] {
			return fmt.Errorf("player %d: turning point %d, want %d", i+1, t.turningPoints[i], want)
		}
		v := t.victoryStart[i]
		if v <= LoopLength+1 {
			return fmt.Errorf("player %d: victory start %d must be above %d", i+1, v, LoopLength+1)
		}
		for j := 0; j < i; j++ {
			o := t.victoryStart[j]
			if v < o+HomePathLen && o < v+HomePathLen {
				return fmt.Errorf("players %d and %d: home stretches overlap", j+1, i+1)
			}
		}
	}
	for pos := range t.immune {
		if !isLoopCell(pos) {
			return fmt.Errorf("immune cell %d off the loop", pos)
		}
	}
	return nil
}

func (t *Topology) StartingPoint(p PlayerID) int32 { return t.startingPoints[p-1] }
func (t *Topology) TurningPoint(p PlayerID) int32  { return t.turningPoints[p-1] }
func (t *Topology) VictoryStart(p PlayerID) int32  { return t.victoryStart[p-1] }

// FinishPos 玩家的终点格
func (t *Topology) FinishPos(p PlayerID) int32 { return t.victoryStart[p-1] + HomePathLen - 1 }

func (t *Topology) SafeSpots() []int32 { return append([]int32(nil), t.safeSpots...) }
func (t *Topology) StarSpots() []int32 { return append([]int32(nil), t.starSpots...) }

// Immune 安全点或星点, 不可被吃
func (t *Topology) Immune(pos int32) bool {
	_, ok := t.immune[pos]
	return ok
}

// InHomeStretch pos 是否在玩家 p 的终点路径上 (含终点格)
func (t *Topology) InHomeStretch(p PlayerID, pos int32) bool {
	v := t.victoryStart[p-1]
	return pos >= v && pos < v+HomePathLen
}

// PositionAt travel 决定 pos: 0 为基地, 1..51 在环路上, 52..57 在终点路径
func (t *Topology) PositionAt(p PlayerID, travel int32) int32 {
	switch {
	case travel <= 0:
		return BasePos
	case travel < LoopLength:
		return loopCellAfter(t.startingPoints[p-1], travel-1)
	case travel <= FinishTravel:
		return t.victoryStart[p-1] + travel - LoopLength
	default:
		return t.FinishPos(p)
	}
}

func isLoopCell(pos int32) bool { return pos >= 1 && pos <= LoopLength }

// loopCellAfter 从 pos 前进 n 格后的环路格
func loopCellAfter(pos, n int32) int32 {
	return (pos-1+n)%LoopLength + 1
}
