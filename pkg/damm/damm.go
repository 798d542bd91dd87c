package damm

import (
	"strconv"
)

// ============================================================================
// Damm 校验位算法
// ============================================================================
//
// 对外展示的拍卖/动议编号末尾带一位校验位，
// 手抄错一位或相邻两位对调都能被检出
// 参考 https://en.wikipedia.org/wiki/Damm_algorithm

var operationTable = [100]byte{
	0, 3, 1, 7, 5, 9, 8, 6, 4, 2,
	7, 0, 9, 2, 1, 5, 4, 8, 6, 3,
	4, 2, 0, 6, 8, 7, 1, 3, 5, 9,
	1, 7, 5, 0, 9, 8, 3, 4, 2, 6,
	6, 1, 2, 3, 0, 4, 5, 9, 7, 8,
	3, 6, 7, 4, 2, 0, 9, 5, 8, 1,
	5, 8, 6, 9, 7, 2, 0, 1, 3, 4,
	8, 9, 4, 5, 3, 6, 2, 0, 1, 7,
	9, 4, 3, 8, 6, 1, 7, 2, 0, 5,
	2, 5, 8, 1, 4, 3, 6, 7, 9, 0,
}

func operation(top, left byte) byte {
	return operationTable[int(left)*10+int(top)]
}

// checkDigit 计算十进制数字串的校验位
func checkDigit(digits string) (byte, bool) {
	var res byte
	for i := 0; i < len(digits); i++ {
		d := digits[i]
		if d < '0' || d > '9' {
			return 0, false
		}
		res = operation(d-'0', res)
	}
	return res + '0', true
}

// AddToStr 在数字串末尾追加校验位
func AddToStr(digits string) string {
	cd, ok := checkDigit(digits)
	if !ok {
		return digits
	}
	return digits + string(cd)
}

// AddToInt64 给ID追加校验位，得到对外展示编号
func AddToInt64(id int64) string {
	return AddToStr(strconv.FormatInt(id, 10))
}

// Validate 校验展示编号并剥掉校验位，返回原始数字串
// 校验失败或不是纯数字返回 false
func Validate(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	body := s[:len(s)-1]
	cd, ok := checkDigit(body)
	if !ok || cd != s[len(s)-1] {
		return "", false
	}
	return body, true
}

// ValidateInt64 校验展示编号并解析出原始ID
func ValidateInt64(s string) (int64, bool) {
	body, ok := Validate(s)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(body, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
