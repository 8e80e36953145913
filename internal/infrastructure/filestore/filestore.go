// Package filestore 负责聊天附件的落盘存储
// 文件本体只存一次，消息表里只记录访问路径和元信息
package filestore

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"thera_chat_server/pkg/errorx"
	"thera_chat_server/pkg/util/random"
)

// StoredFile 已落盘文件的描述
type StoredFile struct {
	// Url 相对访问路径，如 /static/files/xxx.png，由静态路由对外暴露
	Url string
	// Name 上传时的原始文件名
	Name string
	// MimeType 按文件头 Magic Bytes 探测出的 MIME 类型
	MimeType string
}

// FileStore 文件存储接口
type FileStore interface {
	// Save 保存上传文件，返回访问路径和元信息
	Save(fileHeader *multipart.FileHeader) (*StoredFile, error)
}

// LocalStore 本地磁盘实现
type LocalStore struct {
	// dir 落盘目录，对应静态路由 /static/files
	dir string
}

// NewLocalStore 创建本地存储并确保目录存在
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errorx.Wrapf(err, errorx.CodeFileError, "create upload dir %s", dir)
	}
	return &LocalStore{dir: dir}, nil
}

// Save 保存上传文件
// MIME 类型按文件头 512 字节探测，不信任客户端声明；
// 文件名用时间戳加随机串重新生成，避免覆盖和路径注入
func (s *LocalStore) Save(fileHeader *multipart.FileHeader) (*StoredFile, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeFileError, "open uploaded file")
	}
	defer src.Close()

	// 小文件读不满 512 字节，只探测实际读到的部分，
	// 尾部补零会把文本误判成 application/octet-stream
	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		return nil, errorx.Wrap(err, errorx.CodeFileError, "read uploaded file header")
	}
	contentType := http.DetectContentType(buffer[:n])

	if _, err := src.Seek(0, 0); err != nil {
		return nil, errorx.Wrap(err, errorx.CodeFileError, "rewind uploaded file")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	newFileName := random.GetNowAndLenRandomString(10) + ext
	dst := filepath.Join(s.dir, newFileName)

	out, err := os.Create(dst)
	if err != nil {
		return nil, errorx.Wrapf(err, errorx.CodeFileError, "create file %s", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		// 写了一半的文件不保留
		_ = os.Remove(dst)
		return nil, errorx.Wrapf(err, errorx.CodeFileError, "write file %s", dst)
	}

	return &StoredFile{
		Url:      "/static/files/" + newFileName,
		Name:     fileHeader.Filename,
		MimeType: contentType,
	}, nil
}
