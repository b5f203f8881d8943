package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/emberglow/ember/engine/assets/loaders"
	"github.com/emberglow/ember/engine/core"
	"github.com/emberglow/ember/engine/renderer/metadata"
)

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// ReloadEvent is emitted when a watched asset file changes on disk. The
// texture system uses these to re-upload textures whose source changed.
type ReloadEvent struct {
	Path string
	Type metadata.ResourceType
}

type AssetManager struct {
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	reloads  chan ReloadEvent
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	am := &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		fsnotify: fsWatch,
		reloads:  make(chan ReloadEvent, 64),
		done:     make(chan struct{}),
	}

	am.registerLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(metadata.ResourceTypeBitmapFont, &loaders.BitmapFontLoader{})

	return am, nil
}

// Initialize starts the watch goroutine and indexes the assets directory.
// An empty dir disables watching; loading by explicit path still works.
func (am *AssetManager) Initialize(assetsDir string) error {
	go am.start()

	if assetsDir == "" {
		return nil
	}
	return am.addRecursive(assetsDir)
}

// ReloadEvents is the stream of changed-on-disk notifications.
func (am *AssetManager) ReloadEvents() <-chan ReloadEvent {
	return am.reloads
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	return am.watchRecursive(name, false)
}

func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads the file at path with the loader matching its extension.
func (am *AssetManager) LoadAsset(path string, params interface{}) (*metadata.Resource, error) {
	assetType, ok := determineAssetType(path)
	if !ok {
		return nil, fmt.Errorf("no loader for asset: %s", path)
	}

	loader, loaderExists := am.loaders[assetType]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %d", assetType)
	}

	resource, err := loader.Load(path, params)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	am.assets[path] = AssetInfo{
		Path:       path,
		Type:       assetType,
		LastLoaded: time.Now(),
	}
	am.mutex.Unlock()

	return resource, nil
}

func (am *AssetManager) UnloadAsset(resource *metadata.Resource) error {
	if resource == nil {
		return nil
	}
	loader, ok := am.loaders[resource.Type]
	if !ok {
		return nil
	}
	return loader.Unload(resource)
}

func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	return nil
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
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}
			// Can't stat a deleted path, so just try to drop it from both
			// the index and the watch list.
			if e.Op&fsnotify.Remove != 0 {
				am.removeAsset(e.Name)
				am.fsnotify.Remove(e.Name)
			}

		case e := <-am.fsnotify.Errors:
			if e != nil {
				core.LogError(e.Error())
			}

		case <-am.done:
			am.fsnotify.Close()
			close(am.reloads)
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			return nil
		}
		if unWatch {
			return am.fsnotify.Remove(walkPath)
		}
		return am.fsnotify.Add(walkPath)
	})
}

// Handle the creation or modification of a file.
func (am *AssetManager) handleFileEvent(path string) {
	assetType, ok := determineAssetType(path)
	if !ok {
		return
	}

	am.mutex.Lock()
	am.assets[path] = AssetInfo{
		Path:       path,
		Type:       assetType,
		LastLoaded: time.Now(),
	}
	am.mutex.Unlock()

	select {
	case am.reloads <- ReloadEvent{Path: path, Type: assetType}:
	default:
		core.LogWarn("asset reload queue full, dropping event for %s", path)
	}
}

// Remove the asset from the index if it was deleted.
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}

func determineAssetType(path string) (metadata.ResourceType, bool) {
	switch filepath.Ext(path) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		return metadata.ResourceTypeImage, true
	case ".fnt":
		return metadata.ResourceTypeBitmapFont, true
	default:
		return 0, false
	}
}
