package textutil

import (
	"math"
	"testing"
)

func TestSimilarityNil(t *testing.T) {
	tests := []struct {
		name string
		a    *Fingerprint
		b    *Fingerprint
		want float64
	}{
		{"both nil", nil, nil, 0},
		{"a nil", nil, NewFingerprint("hợp đồng mua bán"), 0},
		{"b nil", NewFingerprint("hợp đồng mua bán"), nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Similarity(tt.b)
			if got != tt.want {
				t.Errorf("Similarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimilarityIdentical(t *testing.T) {
	text := "Quyết định về việc phê duyệt kế hoạch mua sắm năm 2024"
	got := NewFingerprint(text).Similarity(NewFingerprint(text))
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Similarity(identical) = %v, want 1.0", got)
	}
}

func TestSimilarityCompletelyDifferent(t *testing.T) {
	a := NewFingerprint("hợp đồng thuê nhà")
	b := NewFingerprint("báo cáo tài chính quý")

	if got := a.Similarity(b); got != 0 {
		t.Errorf("Similarity(different) = %v, want 0", got)
	}
}

func TestSimilarityPartialOverlap(t *testing.T) {
	a := NewFingerprint("báo cáo tài chính quý một")
	b := NewFingerprint("báo cáo nhân sự quý hai")

	got := a.Similarity(b)
	if got <= 0 || got >= 1 {
		t.Errorf("Similarity(partial) = %v, want between 0 and 1", got)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	a := NewFingerprint("công văn gửi phòng kế toán")
	b := NewFingerprint("phòng kế toán trả lời công văn")

	if ab, ba := a.Similarity(b), b.Similarity(a); ab != ba {
		t.Errorf("Similarity not symmetric: (%v, %v)", ab, ba)
	}
}

func TestSimilarityZeroNorm(t *testing.T) {
	a := &Fingerprint{tokens: map[string]float64{}, norm: 0}
	b := NewFingerprint("công văn số 12")

	if got := a.Similarity(b); got != 0 {
		t.Errorf("Similarity(zero norm) = %v, want 0", got)
	}
}

func TestNewFingerprintEmpty(t *testing.T) {
	if fp := NewFingerprint(""); fp != nil {
		t.Error("expected nil for empty text")
	}
	if fp := NewFingerprint("a b c , ."); fp != nil {
		t.Error("expected nil for text with only single-rune tokens")
	}
}

func TestNewFingerprintNormCalculation(t *testing.T) {
	// "đồng đồng hợp" -> đồng:2, hợp:1
	fp := NewFingerprint("đồng đồng hợp")
	if fp == nil {
		t.Fatal("expected fingerprint")
	}
	if math.Abs(fp.norm-math.Sqrt(5)) > 0.0001 {
		t.Errorf("norm = %v, want %v", fp.norm, math.Sqrt(5))
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "vietnamese words",
			input: "Hợp Đồng Mua Bán",
			want:  []string{"hợp", "đồng", "mua", "bán"},
		},
		{
			name:  "punctuation and numbers",
			input: "Số: 123/QĐ-UBND, ngày 15/03/2024",
			want:  []string{"số", "123", "qđ", "ubnd", "ngày", "15", "03", "2024"},
		},
		{
			name:  "decomposed input is composed",
			input: "Quyết",
			want:  []string{"quyết"},
		},
		{
			name:  "single runes dropped",
			input: "a b c",
			want:  []string{},
		},
		{
			name:  "empty string",
			input: "",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize() = %v (len %d), want %v (len %d)",
					got, len(got), tt.want, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFingerprintEncodeDecode(t *testing.T) {
	fp := NewFingerprint("công văn công văn khẩn")
	encoded := fp.Encode()
	if encoded != "công:2 khẩn:1 văn:2" {
		t.Fatalf("Encode() = %q", encoded)
	}
	decoded := DecodeFingerprint(encoded)
	if math.Abs(fp.Similarity(decoded)-1.0) > 1e-9 {
		t.Fatalf("decoded fingerprint differs: %q", decoded.Encode())
	}
	if DecodeFingerprint("") != nil {
		t.Fatal("expected nil for empty encoding")
	}
	if got := DecodeFingerprint("bad :3 ok:x").TokenCount(); got != 0 {
		t.Fatalf("expected malformed pairs to be skipped, got %d tokens", got)
	}
}

func TestSimilarityNearDuplicateLetter(t *testing.T) {
	original := `
		CỘNG HÒA XÃ HỘI CHỦ NGHĨA VIỆT NAM
		Độc lập - Tự do - Hạnh phúc
		Số: 45/2024/HĐ-KT
		HỢP ĐỒNG CUNG CẤP DỊCH VỤ BẢO TRÌ HỆ THỐNG MÁY CHỦ
		Bên A cam kết thanh toán đầy đủ giá trị hợp đồng trong vòng 30 ngày.
	`
	rescanned := `
		CỘNG HÒA XÃ HỘI CHỦ NGHĨA VIỆT NAM
		Độc lập - Tự do - Hạnh phúc
		Số: 45/2024/HĐ-KT
		HỢP ĐỒNG CUNG CẤP DỊCH VỤ BẢO TRÌ HỆ THỐNG MÁY CHỦ
		Bên A cam kết thanh toán đầy đủ giá trị hợp đồng trong vòng 30 ngày
	`
	unrelated := `
		BÁO CÁO KẾT QUẢ TUYỂN DỤNG NHÂN SỰ
		Phòng nhân sự đã tổ chức phỏng vấn mười hai ứng viên.
	`

	if sim := NewFingerprint(original).Similarity(NewFingerprint(rescanned)); sim < 0.99 {
		t.Errorf("rescan similarity = %v, want ~1.0", sim)
	}
	if sim := NewFingerprint(original).Similarity(NewFingerprint(unrelated)); sim >= 0.5 {
		t.Errorf("unrelated similarity = %v, should be < 0.5", sim)
	}
}
