package ir

type FuncID int32
type BlockID int32
type ValueID int32
type GlobalID int32

const (
	NoFuncID   FuncID   = -1
	NoBlockID  BlockID  = -1
	NoValueID  ValueID  = -1
	NoGlobalID GlobalID = -1
)

func (id FuncID) IsValid() bool   { return id != NoFuncID }
func (id BlockID) IsValid() bool  { return id != NoBlockID }
func (id ValueID) IsValid() bool  { return id != NoValueID }
func (id GlobalID) IsValid() bool { return id != NoGlobalID }
