package api

import (
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"LotterySync/internal/model"

	"github.com/gin-gonic/gin"
)

const maxRandomCount = 20

// RandomNumberResponse /v1/random_numbers 响应
type RandomNumberResponse struct {
	MinValue int   `json:"min_value"`
	MaxValue int   `json:"max_value"`
	Count    int   `json:"count"`
	Unique   bool  `json:"unique"`
	Numbers  []int `json:"numbers"`
}

// PrivacyPolicyResponse /privacy_policy 响应
type PrivacyPolicyResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DataUsage   string `json:"data_usage"`
	Limitations string `json:"limitations"`
	Contact     string `json:"contact"`
	LastUpdated string `json:"last_updated"`
}

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RandomNumbers 随机号码
// GET /v1/random_numbers?min_value=0&max_value=99&count=1&unique=false
func RandomNumbers(c *gin.Context) {
	minValue, err := strconv.Atoi(c.DefaultQuery("min_value", "0"))
	if err != nil || minValue < 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "min_value phải là số nguyên không âm."})
		return
	}
	maxValue, err := strconv.Atoi(c.DefaultQuery("max_value", "99"))
	if err != nil || maxValue <= 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "max_value phải là số nguyên dương."})
		return
	}
	count, err := strconv.Atoi(c.DefaultQuery("count", "1"))
	if err != nil || count <= 0 || count > maxRandomCount {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "count phải nằm trong khoảng 1-20."})
		return
	}
	unique, err := strconv.ParseBool(c.DefaultQuery("unique", "false"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unique phải là true hoặc false."})
		return
	}

	if minValue > maxValue {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "min_value phải nhỏ hơn hoặc bằng max_value."})
		return
	}
	span := maxValue - minValue + 1
	if unique && count > span {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Không thể tạo đủ số ngẫu nhiên không trùng lặp trong khoảng đã cho."})
		return
	}

	numbers := make([]int, 0, count)
	if unique {
		// 部分洗牌：span 可能很大，只记录被换出的位置
		swapped := make(map[int]int, count)
		at := func(i int) int {
			if v, ok := swapped[i]; ok {
				return v
			}
			return i
		}
		for i := 0; i < count; i++ {
			j := i + rand.IntN(span-i)
			vi, vj := at(i), at(j)
			swapped[i], swapped[j] = vj, vi
			numbers = append(numbers, minValue+vj)
		}
	} else {
		for i := 0; i < count; i++ {
			numbers = append(numbers, minValue+rand.IntN(span))
		}
	}

	c.JSON(http.StatusOK, RandomNumberResponse{
		MinValue: minValue,
		MaxValue: maxValue,
		Count:    count,
		Unique:   unique,
		Numbers:  numbers,
	})
}

func PrivacyPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, PrivacyPolicyResponse{
		Title: "Chính sách quyền riêng tư",
		Description: "Ứng dụng này chỉ thu thập và hiển thị dữ liệu kết quả xổ số. " +
			"Chúng tôi không yêu cầu, lưu trữ hay xử lý thông tin cá nhân của người dùng.",
		DataUsage: "Dữ liệu được sử dụng duy nhất để phản hồi câu hỏi về kết quả xổ số. " +
			"Không có dữ liệu cá nhân hay hành vi người dùng nào được thu thập.",
		Limitations: "Kết quả xổ số được cung cấp mang tính tham khảo. Người dùng nên đối chiếu với nguồn chính thức " +
			"khi cần xác minh.",
		Contact:     "Liên hệ: clientsupport@pmsa.com.vn",
		LastUpdated: time.Now().Format(model.DateLayout),
	})
}
