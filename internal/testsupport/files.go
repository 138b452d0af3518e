package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"docintake/internal/intake"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path string, content []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// TextDocument builds a plain-text document with the given body.
func TextDocument(id, name, body string) intake.Document {
	return intake.Document{
		ID:              id,
		Name:            name,
		MimeType:        intake.MimeText,
		SizeBytes:       int64(len(body)),
		Content:         []byte(body),
		Owner:           "nguyen.van.a",
		OwnerDepartment: "HANH_CHINH",
	}
}

// ContractText is a small contract body that extracts cleanly.
const ContractText = `HỢP ĐỒNG MUA BÁN HÀNG HÓA
Số hiệu: 12/2024/HĐ-MB
Ngày ban hành: 15/03/2024
Trích yếu: Hợp đồng mua bán thiết bị văn phòng
Số lượng: 20
Tổng giá trị: 150.000.000 VNĐ
Bên A: Công ty TNHH Alpha
Bên B: Công ty CP Beta
`
