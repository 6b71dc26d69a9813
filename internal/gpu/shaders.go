package gpu

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Full-screen quad shared by the simulation and background passes.
const quadVertSrc = `#version 410 core

layout(location = 0) in vec2 aPos; // -1..1

out vec2 vUV;

void main() {
    vUV = aPos * 0.5 + 0.5;
    gl_Position = vec4(aPos, 0.0, 1.0);
}
` + "\x00"

// Classic 3D Perlin noise (Gustavson), two octaves with the same
// alpha/beta as the CPU field, and the curl of three offset potentials.
const curlNoiseGLSL = `
vec3 mod289(vec3 x) { return x - floor(x * (1.0 / 289.0)) * 289.0; }
vec4 mod289(vec4 x) { return x - floor(x * (1.0 / 289.0)) * 289.0; }
vec4 permute(vec4 x) { return mod289(((x * 34.0) + 10.0) * x); }
vec4 taylorInvSqrt(vec4 r) { return 1.79284291400159 - 0.85373472095314 * r; }
vec3 fade(vec3 t) { return t * t * t * (t * (t * 6.0 - 15.0) + 10.0); }

float cnoise(vec3 P) {
    vec3 Pi0 = mod289(floor(P));
    vec3 Pi1 = mod289(floor(P) + vec3(1.0));
    vec3 Pf0 = fract(P);
    vec3 Pf1 = Pf0 - vec3(1.0);
    vec4 ix = vec4(Pi0.x, Pi1.x, Pi0.x, Pi1.x);
    vec4 iy = vec4(Pi0.yy, Pi1.yy);
    vec4 iz0 = Pi0.zzzz;
    vec4 iz1 = Pi1.zzzz;

    vec4 ixy = permute(permute(ix) + iy);
    vec4 ixy0 = permute(ixy + iz0);
    vec4 ixy1 = permute(ixy + iz1);

    vec4 gx0 = ixy0 * (1.0 / 7.0);
    vec4 gy0 = fract(floor(gx0) * (1.0 / 7.0)) - 0.5;
    gx0 = fract(gx0);
    vec4 gz0 = vec4(0.5) - abs(gx0) - abs(gy0);
    vec4 sz0 = step(gz0, vec4(0.0));
    gx0 -= sz0 * (step(0.0, gx0) - 0.5);
    gy0 -= sz0 * (step(0.0, gy0) - 0.5);

    vec4 gx1 = ixy1 * (1.0 / 7.0);
    vec4 gy1 = fract(floor(gx1) * (1.0 / 7.0)) - 0.5;
    gx1 = fract(gx1);
    vec4 gz1 = vec4(0.5) - abs(gx1) - abs(gy1);
    vec4 sz1 = step(gz1, vec4(0.0));
    gx1 -= sz1 * (step(0.0, gx1) - 0.5);
    gy1 -= sz1 * (step(0.0, gy1) - 0.5);

    vec3 g000 = vec3(gx0.x, gy0.x, gz0.x);
    vec3 g100 = vec3(gx0.y, gy0.y, gz0.y);
    vec3 g010 = vec3(gx0.z, gy0.z, gz0.z);
    vec3 g110 = vec3(gx0.w, gy0.w, gz0.w);
    vec3 g001 = vec3(gx1.x, gy1.x, gz1.x);
    vec3 g101 = vec3(gx1.y, gy1.y, gz1.y);
    vec3 g011 = vec3(gx1.z, gy1.z, gz1.z);
    vec3 g111 = vec3(gx1.w, gy1.w, gz1.w);

    vec4 norm0 = taylorInvSqrt(vec4(dot(g000, g000), dot(g010, g010), dot(g100, g100), dot(g110, g110)));
    g000 *= norm0.x;
    g010 *= norm0.y;
    g100 *= norm0.z;
    g110 *= norm0.w;
    vec4 norm1 = taylorInvSqrt(vec4(dot(g001, g001), dot(g011, g011), dot(g101, g101), dot(g111, g111)));
    g001 *= norm1.x;
    g011 *= norm1.y;
    g101 *= norm1.z;
    g111 *= norm1.w;

    float n000 = dot(g000, Pf0);
    float n100 = dot(g100, vec3(Pf1.x, Pf0.yz));
    float n010 = dot(g010, vec3(Pf0.x, Pf1.y, Pf0.z));
    float n110 = dot(g110, vec3(Pf1.xy, Pf0.z));
    float n001 = dot(g001, vec3(Pf0.xy, Pf1.z));
    float n101 = dot(g101, vec3(Pf1.x, Pf0.y, Pf1.z));
    float n011 = dot(g011, vec3(Pf0.x, Pf1.yz));
    float n111 = dot(g111, Pf1);

    vec3 f = fade(Pf0);
    vec4 nz = mix(vec4(n000, n100, n010, n110), vec4(n001, n101, n011, n111), f.z);
    vec2 nyz = mix(nz.xy, nz.zw, f.y);
    return 2.2 * mix(nyz.x, nyz.y, f.x);
}

float fbm(vec3 p) {
    return cnoise(p + uSeed) + 0.5 * cnoise(p * 2.0 + uSeed);
}

vec3 potential(vec3 p) {
    return vec3(
        fbm(p),
        fbm(vec3(p.y - 19.1, p.z + 33.4, p.x + 47.2)),
        fbm(vec3(p.z + 74.2, p.x - 124.5, p.y + 99.4)));
}

vec3 curlNoise(vec3 p) {
    const float e = 0.1;
    vec3 dx = vec3(e, 0.0, 0.0);
    vec3 dy = vec3(0.0, e, 0.0);
    vec3 dz = vec3(0.0, 0.0, e);

    vec3 px0 = potential(p - dx);
    vec3 px1 = potential(p + dx);
    vec3 py0 = potential(p - dy);
    vec3 py1 = potential(p + dy);
    vec3 pz0 = potential(p - dz);
    vec3 pz1 = potential(p + dz);

    vec3 v = vec3(
        (py1.z - py0.z) - (pz1.y - pz0.y),
        (pz1.x - pz0.x) - (px1.z - px0.z),
        (px1.y - px0.y) - (py1.x - py0.x)) / (2.0 * e);
    float l = length(v);
    return l > 1.0 ? v / l : v;
}
`

// Simulation pass: one fragment per particle, reads the current target and
// writes the advected position into the alternate one.
const simFragSrc = `#version 410 core

uniform sampler2D uPositions;
uniform float uTime;
uniform float uDelta;
uniform float uSpeed;
uniform float uCurlFrequency;
uniform float uAudioAmplitude;
uniform float uFlowScale;
uniform float uAudioGain;
uniform float uContainment;
uniform float uBoundRadius;
uniform vec3 uSeed;

out vec4 FragColor;
` + curlNoiseGLSL + `
void main() {
    vec3 p = texelFetch(uPositions, ivec2(gl_FragCoord.xy), 0).xyz;
    if (uSpeed != 0.0 && uDelta != 0.0) {
        vec3 q = p * uCurlFrequency + vec3(uTime * uSpeed);
        float amount = uSpeed * uDelta * uFlowScale * (1.0 + uAudioAmplitude * uAudioGain);
        p += curlNoise(q) * amount;
        float l = length(p);
        if (l > uBoundRadius) {
            p -= p * ((l - uBoundRadius) * uContainment / l);
        }
    }
    FragColor = vec4(p, 1.0);
}
` + "\x00"

// Particle vertex shader: position comes from the simulation texture, the
// point grows with the audio bin mapped to this particle.
const pointsVertSrc = `#version 410 core

layout(location = 0) in vec2 aUV;

uniform sampler2D uPositions;
uniform sampler2D uAudio;
uniform mat4 uModel;
uniform mat4 uView;
uniform mat4 uProjection;
uniform float uPointSize;
uniform float uPixelRatio;
uniform float uAudioAmplitude;

out vec3 vPos;
out float vBoost;

void main() {
    vec3 p = texture(uPositions, aUV).xyz;
    float bin = texture(uAudio, vec2(aUV.x, 0.5)).r;
    vBoost = bin * uAudioAmplitude;
    vPos = p;
    gl_Position = uProjection * uView * uModel * vec4(p, 1.0);
    gl_PointSize = uPointSize * uPixelRatio * (1.0 + vBoost * 3.0);
}
` + "\x00"

const pointsFragSrc = `#version 410 core

uniform float uOpacity;
uniform float uTime;

in vec3 vPos;
in float vBoost;
out vec4 FragColor;

void main() {
    float d = length(gl_PointCoord - vec2(0.5)) * 2.0;
    if (d > 1.0) discard;
    vec3 base = 0.55 + 0.45 * cos(uTime * 0.2 + vPos * 2.5 + vec3(0.0, 2.0, 4.0));
    vec3 col = mix(base, vec3(1.0), clamp(vBoost, 0.0, 1.0) * 0.6);
    FragColor = vec4(col * (1.0 - d * d), uOpacity);
}
` + "\x00"

// Background: soft pulsing glow behind the sphere.
const backgroundFragSrc = `#version 410 core

uniform float uTime;
uniform vec2 uResolution;
uniform vec2 uViewport;

out vec4 FragColor;

void main() {
    vec2 uv = gl_FragCoord.xy / uViewport - 0.5;
    uv.x *= uResolution.x / max(uResolution.y, 1.0);
    float d = length(uv);
    float pulse = 0.85 + 0.15 * sin(uTime * 0.6);
    float glow = exp(-d * 3.5) * 0.22 * pulse;
    vec3 col = vec3(0.10, 0.16, 0.42) * glow + vec3(0.02, 0.0, 0.05) * (1.0 - d);
    FragColor = vec4(max(col, vec3(0.0)), 1.0);
}
` + "\x00"

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		buf := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(buf))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile shader: %s", strings.TrimRight(buf, "\x00"))
	}
	return shader, nil
}

// linkProgram builds a (vertex, fragment) pair. The shaders are deleted once
// linked; a failed link leaves nothing allocated.
func linkProgram(vertSrc, fragSrc string) (uint32, error) {
	vs, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fs, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)

	gl.DetachShader(program, vs)
	gl.DetachShader(program, fs)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		buf := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(program, logLen, nil, gl.Str(buf))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link program: %s", strings.TrimRight(buf, "\x00"))
	}
	return program, nil
}

func uniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}
