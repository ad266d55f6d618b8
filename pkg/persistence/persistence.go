package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/betbot/wfmtrader/pkg/logger"
)

// Service 持久化服务接口
type Service interface {
	NewStore(namespace, name string) Store
}

// Store 存储接口
type Store interface {
	Save(data interface{}) error
	Load(data interface{}) error
}

// ErrNotExists 表示数据不存在
var ErrNotExists = fmt.Errorf("persistence data not exists")

// JSONFileService 基于 JSON 文件的持久化服务（设置、运行状态）
type JSONFileService struct {
	baseDir string
}

// NewJSONFileService 创建 JSON 文件持久化服务
func NewJSONFileService(baseDir string) *JSONFileService {
	return &JSONFileService{baseDir: baseDir}
}

// NewStore 创建新的存储，文件名为 <namespace>_<name>.json
func (s *JSONFileService) NewStore(namespace, name string) Store {
	return &JSONFileStore{
		service: s,
		key:     namespace + ":" + name,
	}
}

// JSONFileStore JSON 文件存储实现
type JSONFileStore struct {
	service *JSONFileService
	key     string
	mu      sync.Mutex
}

var keySanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func (s *JSONFileStore) filePath() string {
	safe := keySanitizer.ReplaceAllString(s.key, "_")
	return filepath.Join(s.service.baseDir, safe+".json")
}

// Save 保存数据（先写临时文件再 rename，避免写一半的文件）
func (s *JSONFileStore) Save(data interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Debugf("[persistence] Save: key=%s", s.key)
	if err := os.MkdirAll(s.service.baseDir, 0o755); err != nil {
		return err
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	path := s.filePath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load 加载数据
func (s *JSONFileStore) Load(data interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Debugf("[persistence] Load: key=%s", s.key)
	b, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotExists
		}
		return err
	}
	if len(b) == 0 {
		return ErrNotExists
	}
	return json.Unmarshal(b, data)
}

// MemoryStore 内存存储（测试与未配置数据目录时使用）
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

func (m *MemoryStore) Save(data interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data = b
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(data interface{}) error {
	m.mu.Lock()
	b := m.data
	m.mu.Unlock()
	if len(b) == 0 {
		return ErrNotExists
	}
	return json.Unmarshal(b, data)
}
