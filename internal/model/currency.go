package model

// Currency 货币表
// 各货币相互独立，一种货币的余额不影响另一种
type Currency struct {
	Code         string `gorm:"primaryKey;type:varchar(16)" json:"code"`
	SingularName string `gorm:"type:varchar(64);not null" json:"singular_name"`
	PluralName   string `gorm:"type:varchar(64);not null" json:"plural_name"`
}

func (Currency) TableName() string {
	return "currency"
}

// 默认货币：pc 是流通货币，gen 是定期产出 pc 的发电机
const (
	CurrencyCapital   = "pc"
	CurrencyGenerator = "gen"
)
