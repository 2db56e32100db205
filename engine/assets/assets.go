package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/olivercrane/vasari/engine/assets/loaders"
	"github.com/olivercrane/vasari/engine/core"
)

type ResourceType int

const (
	ResourceTypeNone ResourceType = iota
	ResourceTypeShader
	ResourceTypeImage
	ResourceTypeModel
)

type Loader interface {
	Load(path string, params interface{}) (*loaders.Resource, error)
	Unload(*loaders.Resource) error
}

type AssetInfo struct {
	Path       string
	Type       ResourceType
	LastLoaded time.Time
}

// AssetManager indexes the asset directory, watches it for changes and
// dispatches loads to the registered loader for each file type. It also
// serves compiled shader binaries to the renderer backend.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[ResourceType]Loader),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}, nil
}

func (am *AssetManager) Initialize(assetsDir string) error {
	am.root = assetsDir

	go am.start()

	if err := am.addRecursive(assetsDir); err != nil {
		return err
	}

	// Register loaders
	am.registerLoader(ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(ResourceTypeModel, &loaders.ModelLoader{})

	core.LogInfo("Asset manager watching %s (%d assets indexed).", assetsDir, am.assetCount())
	return nil
}

func (am *AssetManager) Shutdown() {
	if am.isClosed {
		return
	}
	am.isClosed = true
	close(am.done)
}

// addRecursive starts watching the named directory and all sub-directories,
// indexing every file found on the way.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	return am.watchRecursive(name, false)
}

func (am *AssetManager) registerLoader(assetType ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads the file at the given path relative to the asset root,
// dispatching on the file extension.
func (am *AssetManager) LoadAsset(relPath string, params interface{}) (*loaders.Resource, error) {
	path := filepath.Join(am.root, relPath)

	am.mutex.RLock()
	asset, exists := am.assets[path]
	am.mutex.RUnlock()
	if !exists {
		return nil, fmt.Errorf("asset not found: %s", path)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type %d (%s)", asset.Type, path)
	}

	resource, err := loader.Load(path, params)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	asset.LastLoaded = time.Now()
	am.assets[path] = asset
	am.mutex.Unlock()

	return resource, nil
}

// LoadImage is a typed convenience over LoadAsset for texture files.
func (am *AssetManager) LoadImage(relPath string) (*loaders.ImageData, error) {
	resource, err := am.LoadAsset(relPath, nil)
	if err != nil {
		return nil, err
	}
	data, ok := resource.Data.(*loaders.ImageData)
	if !ok {
		return nil, fmt.Errorf("%s is not an image asset", relPath)
	}
	return data, nil
}

// LoadModel is a typed convenience over LoadAsset for model files.
func (am *AssetManager) LoadModel(relPath string) (*loaders.ModelData, error) {
	resource, err := am.LoadAsset(relPath, nil)
	if err != nil {
		return nil, err
	}
	data, ok := resource.Data.(*loaders.ModelData)
	if !ok {
		return nil, fmt.Errorf("%s is not a model asset", relPath)
	}
	return data, nil
}

// ShaderModule returns the SPIR-V bytes for a compiled shader under the
// shaders subdirectory. The renderer backend calls this while building its
// pipelines.
func (am *AssetManager) ShaderModule(name string) ([]byte, error) {
	resource, err := am.LoadAsset(filepath.Join("shaders", name), nil)
	if err != nil {
		return nil, err
	}
	data, ok := resource.Data.([]byte)
	if !ok {
		return nil, fmt.Errorf("%s is not a shader binary", name)
	}
	return data, nil
}

func (am *AssetManager) assetCount() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

func (am *AssetManager) start() {
	for {
		select {

		case e := <-am.fsnotify.Events:
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					am.watchRecursive(e.Name, false)
				}
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}
			// A deleted entry cannot be stat'd, so drop it from both the
			// index and the watch list unconditionally.
			if e.Op&fsnotify.Remove != 0 {
				am.removeAsset(e.Name)
				am.fsnotify.Remove(e.Name)
			}

		case e := <-am.fsnotify.Errors:
			core.LogError(e.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds (or removes) all directories under the given one to
// the watch list, indexing files along the way.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				if err := am.fsnotify.Remove(walkPath); err != nil {
					return err
				}
			} else {
				if err := am.fsnotify.Add(walkPath); err != nil {
					return err
				}
			}
		} else {
			am.handleFileEvent(walkPath)
		}
		return nil
	})
}

func (am *AssetManager) handleFileEvent(path string) {
	assetType := determineAssetType(path)
	if assetType == ResourceTypeNone {
		return
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path:       path,
		Type:       assetType,
		LastLoaded: time.Now(),
	}
}

func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, path)
}

func determineAssetType(path string) ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return ResourceTypeShader
	case ".png", ".jpg", ".jpeg", ".bmp":
		return ResourceTypeImage
	case ".obj":
		return ResourceTypeModel
	default:
		return ResourceTypeNone
	}
}
