package provider

import (
	"github.com/Automaat/shader-buster/internal/config"
)

// builtin describes a provider whose locations are a fixed function of the environment.
type builtin struct {
	candidates func(Env) []candidate
	name       string
	display    string
	kind       Kind
	platforms  []string
	priority   int
}

func (d builtin) factory(env Env, _ *config.Config) (Provider, error) {
	return &pathProvider{
		BaseProvider: NewBaseProvider(d.name, d.display, d.kind, d.priority, env, d.platforms...),
		candidates:   d.candidates,
	}, nil
}

const (
	windows = "windows"
	linux   = "linux"
	darwin  = "darwin"
)

var builtins = []builtin{
	{
		name: "system", display: "System", kind: KindSystem, priority: 10,
		platforms:  []string{windows, linux},
		candidates: systemCandidates,
	},
	{
		name: "nvidia", display: "NVIDIA", kind: KindGPUVendor, priority: 20,
		platforms:  []string{windows, linux},
		candidates: nvidiaCandidates,
	},
	{
		name: "amd", display: "AMD", kind: KindGPUVendor, priority: 21,
		platforms:  []string{windows, linux},
		candidates: amdCandidates,
	},
	{
		name: "intel", display: "Intel", kind: KindGPUVendor, priority: 22,
		platforms:  []string{windows, linux},
		candidates: intelCandidates,
	},
	{
		name: "epic", display: "Epic Games", kind: KindLauncher, priority: 60,
		platforms:  []string{windows},
		candidates: epicCandidates,
	},
	{
		name: "gog", display: "GOG Galaxy", kind: KindLauncher, priority: 61,
		platforms:  []string{windows},
		candidates: gogCandidates,
	},
	{
		name: "ea", display: "EA App", kind: KindLauncher, priority: 62,
		platforms:  []string{windows},
		candidates: eaCandidates,
	},
	{
		name: "unreal", display: "Unreal Engine", kind: KindEngine, priority: 100,
		platforms:  []string{windows, linux},
		candidates: unrealCandidates,
	},
	{
		name: "unity", display: "Unity", kind: KindEngine, priority: 101,
		platforms:  []string{windows, linux, darwin},
		candidates: unityCandidates,
	},
	{
		name: "browser", display: "Browser", kind: KindBrowser, priority: 150,
		platforms:  []string{windows, linux, darwin},
		candidates: browserCandidates,
	},
}

func systemCandidates(e Env) []candidate {
	if e.GOOS == windows {
		return []candidate{
			at("DirectX Cache", e.temp(), "DXCache"),
			at("Direct3D Shader Cache", e.temp(), "D3DSCache"),
			at("OpenGL Cache", e.temp(), "OpenGLCache"),
			at("D3DS Cache (Local)", e.localAppData(), "D3DSCache"),
			at("DXC", e.localLow(), "Microsoft", "DirectX Shader Compiler"),
		}
	}
	return []candidate{
		at("Mesa Shader Cache", e.xdgCache(), "mesa_shader_cache"),
		at("Mesa Shader Cache (DB)", e.xdgCache(), "mesa_shader_cache_db"),
		at("Vulkan Pipeline Cache", e.xdgCache(), "radv_builtin_shaders"),
	}
}

func nvidiaCandidates(e Env) []candidate {
	if e.GOOS == windows {
		return []candidate{
			at("DirectX Cache", e.localAppData(), "NVIDIA", "DXCache"),
			at("OpenGL Cache", e.localAppData(), "NVIDIA", "GLCache"),
			at("NV Cache", e.localAppData(), "NVIDIA Corporation", "NV_Cache"),
			at("Temp NV Cache", e.temp(), "NVIDIA Corporation", "NV_Cache"),
		}
	}
	return []candidate{
		at("OpenGL Cache", e.Home, ".nv", "GLCache"),
		at("Compute Cache", e.Home, ".nv", "ComputeCache"),
		at("OpenGL Cache (XDG)", e.xdgCache(), "nvidia", "GLCache"),
	}
}

func amdCandidates(e Env) []candidate {
	if e.GOOS == windows {
		return []candidate{
			at("DirectX Cache", e.localAppData(), "AMD", "DxCache"),
			at("OpenGL Cache", e.localAppData(), "AMD", "GLCache"),
			at("Vulkan Cache", e.localAppData(), "AMD", "VkCache"),
			at("DXC Cache", e.localAppData(), "AMD", "DxcCache"),
		}
	}
	return []candidate{
		at("Vulkan Cache", e.xdgCache(), "AMD", "VkCache"),
	}
}

func intelCandidates(e Env) []candidate {
	if e.GOOS == windows {
		return []candidate{
			at("Shader Cache", e.localAppData(), "Intel", "ShaderCache"),
			at("Shader Cache (LocalLow)", e.localLow(), "Intel", "ShaderCache"),
		}
	}
	return []candidate{
		at("Shader Cache", e.xdgCache(), "intel", "ShaderCache"),
	}
}

func epicCandidates(e Env) []candidate {
	return []candidate{
		at("Web Cache", e.localAppData(), "EpicGamesLauncher", "Saved", "webcache"),
		at("Download Cache", e.localAppData(), "EpicGamesLauncher", "Saved", "PersistentDownloadDir"),
	}
}

func gogCandidates(e Env) []candidate {
	return []candidate{
		at("Web Cache", e.localAppData(), "GOG.com", "Galaxy", "webcache"),
		at("Cache", e.localAppData(), "GOG.com", "Galaxy", "cache"),
		at("Shared Web Cache", e.programData(), "GOG.com", "Galaxy", "webcache"),
	}
}

func eaCandidates(e Env) []candidate {
	return []candidate{
		at("EA Desktop Cache", e.localAppData(), "Electronic Arts", "EA Desktop", "cache"),
		at("Origin Cache", e.localAppData(), "Origin", "cache"),
		at("Origin Setup Cache", e.localAppData(), "Origin", "ThinSetup"),
		at("Shared Cache", e.programData(), "Electronic Arts", "EA Desktop", "cache"),
	}
}

func unrealCandidates(e Env) []candidate {
	if e.GOOS == windows {
		return []candidate{
			at("Shader Cache", e.localAppData(), "UnrealEngine", "ShaderCache"),
			at("Launcher Shaders", e.localAppData(), "UnrealEngineLauncher", "Saved", "Shaders"),
			at("Derived Data", e.localAppData(), "UnrealEngine", "*", "Saved", "ShaderCache"),
		}
	}
	return []candidate{
		at("Derived Data", e.xdgConfig(), "Epic", "UnrealEngine", "*", "Saved", "ShaderCache"),
	}
}

func unityCandidates(e Env) []candidate {
	switch e.GOOS {
	case windows:
		return []candidate{
			at("Shader Caches", e.localLow(), "Unity", "Caches"),
			at("Local Cache", e.localAppData(), "Unity", "cache"),
			at("Editor Shader Cache", e.localAppData(), "Unity", "Editor", "ShaderCache"),
		}
	case darwin:
		return []candidate{
			at("Shader Caches", e.Home, "Library", "Caches", "com.unity3d.UnityEditor", "ShaderCache"),
		}
	}
	return []candidate{
		at("Shader Caches", e.xdgCache(), "unity3d", "ShaderCache"),
		at("Editor Shader Cache", e.xdgConfig(), "unity3d", "Editor", "ShaderCache"),
	}
}

func browserCandidates(e Env) []candidate {
	var chromium []candidate
	var firefox string

	switch e.GOOS {
	case windows:
		local := e.localAppData()
		chromium = []candidate{
			at("Chrome", local, "Google", "Chrome", "User Data"),
			at("Edge", local, "Microsoft", "Edge", "User Data"),
			at("Brave", local, "BraveSoftware", "Brave-Browser", "User Data"),
			at("Opera", local, "Opera Software", "Opera Stable"),
		}
		firefox = under(local, "Mozilla", "Firefox", "Profiles")
	case darwin:
		support := e.macSupport()
		chromium = []candidate{
			at("Chrome", support, "Google", "Chrome"),
			at("Edge", support, "Microsoft Edge"),
			at("Brave", support, "BraveSoftware", "Brave-Browser"),
		}
		firefox = under(e.Home, "Library", "Caches", "Firefox", "Profiles")
	default:
		cfg := e.xdgConfig()
		chromium = []candidate{
			at("Chrome", cfg, "google-chrome"),
			at("Chromium", cfg, "chromium"),
			at("Edge", cfg, "microsoft-edge"),
			at("Brave", cfg, "BraveSoftware", "Brave-Browser"),
		}
		firefox = under(e.xdgCache(), "mozilla", "firefox")
	}

	var out []candidate
	for _, c := range chromium {
		if c.path == "" {
			continue
		}
		out = append(out,
			at(c.label+" Shader Cache", c.path, "ShaderCache"),
			at(c.label+" Skia Shader Cache", c.path, "GrShaderCache"),
			at(c.label+" GPU Cache", c.path, "GpuCache"),
			at(c.label+" GPU Cache (Default)", c.path, "Default", "GPUCache"),
		)
	}
	out = append(out,
		at("Firefox Shader Cache", firefox, "*", "shader-cache"),
		at("Firefox Startup Cache", firefox, "*", "startupCache"),
	)
	return out
}
